package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Topic: "t"})
	require.Error(t, err)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "checker.results"})
	require.NoError(t, err)
	assert.Equal(t, "checker.results", p.writer.Topic)
	assert.Equal(t, 1, p.writer.BatchSize)
}

func TestNewMessage_Headers(t *testing.T) {
	msg := newMessage([]byte("S1"), []byte(`{}`), map[string]string{"event_type": "submission.result"})

	assert.Equal(t, []byte("S1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("submission.result"), msg.Headers[0].Value)
	assert.False(t, msg.Time.IsZero())
}

func TestCompressionFromString(t *testing.T) {
	tests := map[string]kafkago.Compression{
		"gzip":    kafkago.Gzip,
		"SNAPPY":  kafkago.Snappy,
		"lz4":     kafkago.Lz4,
		"zstd":    kafkago.Zstd,
		"none":    0,
		"unknown": kafkago.Snappy,
	}
	for in, want := range tests {
		assert.Equal(t, want, CompressionFromString(in), in)
	}
}
