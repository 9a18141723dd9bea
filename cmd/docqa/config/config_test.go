package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/docqa/cmd/docqa/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "docqa-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .docqa dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".docqa"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			out, err := execute("set", "llm.provider", "anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("llm.provider"))

			_, err = os.Stat(filepath.Join(tmpDir, ".docqa", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "invalid_key", "value")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "llm.provider")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid integer values", func() {
			_, err := execute("set", "retrieval.top_k", "not-a-number")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a threshold outside [-1, 1]", func() {
			_, err := execute("set", "retrieval.threshold", "1.5")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := execute("set", "retrieval.threshold", "0.5")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "retrieval.threshold")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("0.5"))
		})

		It("shows defaults when no config file exists", func() {
			out, err := execute("get", "retrieval.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("4"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := execute("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("chunking.size"))
			Expect(out).To(ContainSubstring("telemetry.sample_rate"))
		})

		It("shows values that were set", func() {
			_, err := execute("set", "llm.provider", "anthropic")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`llm\.provider\s+= "anthropic"`))
		})

		It("rejects any arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
