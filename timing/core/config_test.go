package core_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/timing/core"
)

var _ = Describe("Config", func() {
	It("should validate the default configuration", func() {
		Expect(core.DefaultConfig().Validate()).To(Succeed())
	})

	It("should reject zero-valued parameters", func() {
		config := core.DefaultConfig()
		config.ROBCapacity = 0
		Expect(config.Validate()).To(HaveOccurred())

		config = core.DefaultConfig()
		config.LFBCount = 0
		Expect(config.Validate()).To(HaveOccurred())

		config = core.DefaultConfig()
		config.FrequencyHz = 0
		Expect(config.Validate()).To(HaveOccurred())
	})

	It("should reject a register file too small for the reserved registers", func() {
		config := core.DefaultConfig()
		config.ArchRegCount = insts.RegCount - 1
		Expect(config.Validate()).To(HaveOccurred())
	})

	It("should round-trip through JSON", func() {
		dir, err := os.MkdirTemp("", "o3sim-config")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "cpu.json")

		config := core.DefaultConfig()
		config.EUCount = 2
		config.Trace.Retire = true
		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := core.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for fields absent from the file", func() {
		dir, err := os.MkdirTemp("", "o3sim-config")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "cpu.json")

		Expect(os.WriteFile(path, []byte(`{"eu_count": 2}`), 0644)).To(Succeed())

		loaded, err := core.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.EUCount).To(Equal(uint8(2)))
		Expect(loaded.ROBCapacity).To(Equal(core.DefaultConfig().ROBCapacity))
	})

	It("should reject an invalid config file", func() {
		dir, err := os.MkdirTemp("", "o3sim-config")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "cpu.json")

		Expect(os.WriteFile(path, []byte(`{"rob_capacity": 0}`), 0644)).To(Succeed())
		_, err = core.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})
})
