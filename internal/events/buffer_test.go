package events

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func envelope(id string) Event {
	return Event{ID: id, Type: TranscriptionCreatedKind, Data: json.RawMessage(`{}`)}
}

var _ = Describe("pending queue", func() {
	It("hands envelopes back in publish order", func() {
		q := newPendingQueue(0)

		for _, id := range []string{"1", "2", "3"} {
			_, evicted := q.push(envelope(id))
			Expect(evicted).To(BeFalse())
		}
		Expect(q.Len()).To(Equal(3))

		for _, id := range []string{"1", "2", "3"} {
			e, ok := q.pop()
			Expect(ok).To(BeTrue())
			Expect(e.ID).To(Equal(id))
		}
		Expect(q.Len()).To(Equal(0))
		Expect(q.first).To(BeNil())
		Expect(q.last).To(BeNil())

		_, ok := q.pop()
		Expect(ok).To(BeFalse())
	})

	It("evicts the oldest envelope once full", func() {
		q := newPendingQueue(2)

		q.push(envelope("1"))
		q.push(envelope("2"))
		evicted, ok := q.push(envelope("3"))
		Expect(ok).To(BeTrue())
		Expect(evicted.ID).To(Equal("1"))

		evicted, ok = q.push(envelope("4"))
		Expect(ok).To(BeTrue())
		Expect(evicted.ID).To(Equal("2"))

		Expect(q.Len()).To(Equal(2))
		Expect(q.Dropped()).To(Equal(2))

		e, _ := q.pop()
		Expect(e.ID).To(Equal("3"))
		e, _ = q.pop()
		Expect(e.ID).To(Equal("4"))
	})

	It("accepts new envelopes after being drained", func() {
		q := newPendingQueue(1)

		q.push(envelope("1"))
		_, ok := q.pop()
		Expect(ok).To(BeTrue())

		_, evicted := q.push(envelope("2"))
		Expect(evicted).To(BeFalse())
		e, ok := q.pop()
		Expect(ok).To(BeTrue())
		Expect(e.ID).To(Equal("2"))
		Expect(q.Dropped()).To(Equal(0))
	})
})
