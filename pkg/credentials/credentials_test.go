package credentials_test

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/googleapis/gax-go/v2/apierror"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/credentials"
)

const storedCredentials = `version = 0

[providers.openai]
api_key = "sk-test-key"

[providers.groq]
api_key = "gsk-test-key"
`

var _ = Describe("Manager", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeCredentials := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("NewManager", func() {
		It("creates a manager with an override directory", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr).NotTo(BeNil())
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
		})
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).NotTo(BeNil())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			writeCredentials(storedCredentials)

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKey("openai"))
			Expect(creds.Providers["openai"].APIKey).To(Equal("sk-test-key"))
		})

		It("returns error for malformed TOML", func() {
			writeCredentials("not valid [[[")

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("GetKey", func() {
		It("returns the stored key", func() {
			writeCredentials(storedCredentials)
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("groq")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("gsk-test-key"))
		})

		It("returns empty string for unknown provider", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("ListProviders", func() {
		It("returns empty list when no credentials stored", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("returns stored providers in sorted order", func() {
			writeCredentials(storedCredentials)
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"groq", "openai"}))
		})
	})

	Describe("ResolveKey", func() {
		var mgr *credentials.Manager

		BeforeEach(func() {
			writeCredentials(storedCredentials)
			var err error
			mgr, err = credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("prefers an explicit key", func() {
			key, err := mgr.ResolveKey("openai", "sk-explicit")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-explicit"))
		})

		It("falls back to the credentials file", func() {
			key, err := mgr.ResolveKey("OpenAI", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-test-key"))
		})

		It("falls back to the provider environment variable", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
			key, err := mgr.ResolveKey("anthropic", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-ant-env"))
		})

		It("works without a manager", func() {
			GinkgoT().Setenv("GEMINI_API_KEY", "gem-env")
			var none *credentials.Manager
			key, err := none.ResolveKey("gemini", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("gem-env"))
		})

		It("returns an authentication error naming the variable when nothing is set", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
			_, err := mgr.ResolveKey("anthropic", "")
			Expect(err).To(MatchError(credentials.ErrAuthentication))
			Expect(err.Error()).To(ContainSubstring("ANTHROPIC_API_KEY"))
		})

		It("returns an authentication error for unknown providers", func() {
			_, err := mgr.ResolveKey("mystery", "")
			Expect(err).To(MatchError(credentials.ErrAuthentication))
		})
	})
})

var _ = Describe("EnvVarForProvider", func() {
	DescribeTable("maps providers to environment variables",
		func(provider, env string) {
			Expect(credentials.EnvVarForProvider(provider)).To(Equal(env))
		},
		Entry("openai", "openai", "OPENAI_API_KEY"),
		Entry("anthropic", "anthropic", "ANTHROPIC_API_KEY"),
		Entry("groq", "groq", "GROQ_API_KEY"),
		Entry("gemini", "gemini", "GEMINI_API_KEY"),
		Entry("unknown", "unknown", ""),
	)
})

var _ = Describe("IsSupportedProvider", func() {
	It("returns true for supported providers", func() {
		for _, p := range credentials.SupportedProviders() {
			Expect(credentials.IsSupportedProvider(p)).To(BeTrue())
		}
	})

	It("returns false for keyless or unknown providers", func() {
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
		Expect(credentials.IsSupportedProvider("unknown")).To(BeFalse())
	})
})

var _ = Describe("GoogleKeyRejected", func() {
	It("recognizes the API_KEY_INVALID reason in error details", func() {
		err := &googleapi.Error{
			Code:    http.StatusBadRequest,
			Message: "invalid request",
			Details: []any{map[string]any{
				"@type":  "type.googleapis.com/google.rpc.ErrorInfo",
				"reason": "API_KEY_INVALID",
				"domain": "googleapis.com",
			}},
		}
		Expect(credentials.GoogleKeyRejected(err)).To(BeTrue())
	})

	It("recognizes the reason in legacy error items", func() {
		err := &googleapi.Error{
			Code:   http.StatusBadRequest,
			Errors: []googleapi.ErrorItem{{Reason: "API_KEY_INVALID", Message: "bad key"}},
		}
		Expect(credentials.GoogleKeyRejected(err)).To(BeTrue())
	})

	It("falls back to the 400 message", func() {
		err := &googleapi.Error{
			Code:    http.StatusBadRequest,
			Message: "API key not valid. Please pass a valid API key.",
		}
		Expect(credentials.GoogleKeyRejected(fmt.Errorf("embedding: %w", err))).To(BeTrue())
	})

	It("sees through the gax wrapper", func() {
		apiErr, ok := apierror.FromError(&googleapi.Error{
			Code:    http.StatusBadRequest,
			Message: "API key not valid. Please pass a valid API key.",
		})
		Expect(ok).To(BeTrue())
		Expect(credentials.GoogleKeyRejected(apiErr)).To(BeTrue())
	})

	It("recognizes the gRPC form", func() {
		err := status.Error(codes.InvalidArgument, "API key not valid. Please pass a valid API key.")
		Expect(credentials.GoogleKeyRejected(err)).To(BeTrue())
	})

	It("ignores other bad requests", func() {
		Expect(credentials.GoogleKeyRejected(&googleapi.Error{
			Code:    http.StatusBadRequest,
			Message: "Request contains an invalid argument.",
		})).To(BeFalse())
		Expect(credentials.GoogleKeyRejected(status.Error(codes.InvalidArgument, "bad model name"))).To(BeFalse())
		Expect(credentials.GoogleKeyRejected(errors.New("connection refused"))).To(BeFalse())
		Expect(credentials.GoogleKeyRejected(nil)).To(BeFalse())
	})
})
