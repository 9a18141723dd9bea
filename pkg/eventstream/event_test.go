package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals an index.built event with expected top-level keys", func() {
		event := eventstream.NewIndexBuilt(eventstream.IndexBuilt{
			Documents:  2,
			Chunks:     5,
			Dimension:  384,
			Sources:    []string{"a.txt", "b.csv"},
			DurationMs: 120,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeIndexBuilt))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("index_built"))
		Expect(got).NotTo(HaveKey("question_answered"))
	})

	It("fills the envelope of a question.answered event", func() {
		event := eventstream.NewQuestionAnswered(eventstream.QuestionAnswered{
			Question: "When was Napoleon born?",
			Answer:   "1769",
			Grounded: true,
		})

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeQuestionAnswered))
		Expect(event.Key()).To(Equal(eventstream.EventTypeQuestionAnswered))
		Expect(event.EventID).To(HaveLen(36))
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.Source.Service).To(Equal("docqa"))
		Expect(event.QuestionAnswered.Answer).To(Equal("1769"))
		Expect(event.IndexBuilt).To(BeNil())
	})

	It("gives every event a distinct ID", func() {
		a := eventstream.NewQuestionAnswered(eventstream.QuestionAnswered{})
		b := eventstream.NewQuestionAnswered(eventstream.QuestionAnswered{})
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeIndexBuilt).To(Equal("docqa.index.built"))
		Expect(eventstream.EventTypeQuestionAnswered).To(Equal("docqa.question.answered"))
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
