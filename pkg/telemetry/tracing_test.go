package telemetry_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"

	"github.com/papercomputeco/docqa/pkg/telemetry"
)

var _ = Describe("Tracing", func() {
	ctx := context.Background()

	It("stays disabled without an endpoint", func() {
		p, err := telemetry.Init(ctx, telemetry.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Enabled()).To(BeFalse())
		Expect(p.Shutdown(ctx)).To(Succeed())
	})

	It("starts spans against the default provider without panicking", func() {
		Expect(func() {
			sctx, span := telemetry.StartSpan(ctx, "retrieve", attribute.Int("k", 4))
			Expect(sctx).NotTo(BeNil())
			telemetry.RecordError(span, errors.New("boom"))
			telemetry.RecordError(span, nil)
			span.End()

			_, client := telemetry.StartClientSpan(ctx, "generate")
			client.End()
		}).NotTo(Panic())
	})
})
