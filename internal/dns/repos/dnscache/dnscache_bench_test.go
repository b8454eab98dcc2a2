package dnscache

import (
	"fmt"
	"testing"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

func benchMessage(b *testing.B, name string) *domain.Message {
	b.Helper()
	q, err := domain.NewQuestion(name, domain.RRTypeAAAA, domain.RRClassIN)
	if err != nil {
		b.Fatalf("failed to build question: %v", err)
	}
	return &domain.Message{
		Header:   domain.Header{QDCount: 1, ANCount: 1},
		Question: q,
		Answers:  []domain.Answer{{Type: domain.RRTypeAAAA, Class: domain.RRClassIN, TTL: 300, RDLength: 16, RData: make([]byte, 16)}},
	}
}

func BenchmarkCache_Insert(b *testing.B) {
	c, err := New(Options{})
	if err != nil {
		b.Fatalf("failed to create cache: %v", err)
	}
	msgs := make([]*domain.Message, 16)
	for i := range msgs {
		msgs[i] = benchMessage(b, fmt.Sprintf("host%d.bench.example", i))
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Insert(msgs[i%len(msgs)])
	}
}

func BenchmarkCache_LookupHit(b *testing.B) {
	c, err := New(Options{})
	if err != nil {
		b.Fatalf("failed to create cache: %v", err)
	}
	msg := benchMessage(b, "hit.bench.example")
	if err := c.Insert(msg); err != nil {
		b.Fatalf("failed to insert: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, ok := c.Lookup(msg.Question); !ok {
			b.Fatal("expected hit")
		}
	}
}
