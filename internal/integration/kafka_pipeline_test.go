//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/radar-ppi-etl/internal/adapter/kafka"
	"github.com/couchcryptid/radar-ppi-etl/internal/config"
	"github.com/couchcryptid/radar-ppi-etl/internal/observability"
	"github.com/couchcryptid/radar-ppi-etl/internal/pipeline"
	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

const (
	testSourceTopic = "test-raw-volumes"
	testSinkTopic   = "test-ppi-products"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := kafkatc.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafkatc.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, groupID string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       groupID,
		BatchFlushInterval: 5 * time.Second,
	}
}

// testVolume builds a small volume with a uniform DBZH field at 0.5 degrees.
func testVolume(siteCode string, nominal time.Time) *radar.PolarVolume {
	const rays, bins = 36, 20
	dbzh := make([]float64, rays*bins)
	vradh := make([]float64, rays*bins)
	for i := range dbzh {
		dbzh[i] = 12
		vradh[i] = -5
	}
	return &radar.PolarVolume{
		Site:    radar.Site{Code: siteCode, Lat: 35.333, Lon: -97.278, Altitude: 370},
		Nominal: nominal,
		Scans: []*radar.Scan{{
			Elevation:   0.5,
			AzimuthStep: 10,
			RangeStep:   250,
			Rays:        rays,
			Bins:        bins,
			Params: map[string][]float64{
				radar.ParamDBZH:  dbzh,
				radar.ParamVRADH: vradh,
			},
		}},
	}
}

func encodeVolume(t *testing.T, vol *radar.PolarVolume) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, radar.EncodeVolume(&buf, vol))
	return buf.Bytes()
}

func testTransformOptions() pipeline.Options {
	return pipeline.Options{
		Elevation:          0.5,
		ElevationTolerance: 0.05,
		MaxRange:           4000,
		Resolution:         250,
		WeatherThreshold:   0.5,
		ClassifyTimeout:    5 * time.Second,
	}
}

// readProduct reads one message from the sink consumer and deserializes it.
func readProduct(ctx context.Context, t *testing.T, consumer *kafkago.Reader) (pipeline.Product, map[string]string) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	var product pipeline.Product
	require.NoError(t, json.Unmarshal(msg.Value, &product), "unmarshal sink message")
	return product, headers
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) correctly round-trip a volume through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, fmt.Sprintf("test-reader-%d", time.Now().UnixNano()))

	nominal := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	payload := encodeVolume(t, testVolume("KTST", nominal))

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("KTST"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []pipeline.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("KTST"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	// Transform the raw volume into a product.
	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(nil, testTransformOptions(), discardLogger(), metrics)
	out, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []pipeline.OutputEvent{out}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	product, headers := readProduct(ctx, t, consumer)
	assert.Equal(t, "KTST", headers["site"])
	assert.Equal(t, "0.50", headers["elevation_deg"])

	assert.Equal(t, "KTST", product.Site.Code)
	assert.True(t, product.NominalTime.Equal(nominal))
	assert.InDelta(t, 0.5, product.Elevation, 0.001)
	assert.False(t, product.Classified)
	require.Contains(t, product.Layers, radar.ParamDBZH)
	assert.Len(t, product.Layers[radar.ParamDBZH], product.Size*product.Size)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer →
// Writer) with real Kafka, including a poison message that must be skipped.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()))

	// Publish three valid volumes and one poison pill.
	base := time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)
	msgs := []kafkago.Message{
		{Key: []byte("KTST"), Value: encodeVolume(t, testVolume("KTST", base))},
		{Key: []byte("bad"), Value: []byte("not-json{{{")},
		{Key: []byte("KTST"), Value: encodeVolume(t, testVolume("KTST", base.Add(5*time.Minute)))},
		{Key: []byte("KDIF"), Value: encodeVolume(t, testVolume("KDIF", base))},
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(nil, testTransformOptions(), discardLogger(), metrics)

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the three valid volumes should appear on the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	ids := map[string]bool{}
	sites := map[string]int{}
	for len(ids) < 3 {
		product, headers := readProduct(ctx, t, consumer)
		ids[product.ID] = true
		sites[product.Site.Code]++

		assert.NotEmpty(t, headers["site"])
		assert.False(t, product.ProcessedAt.IsZero())
		require.Contains(t, product.Layers, radar.ParamDBZH)
	}

	assert.Equal(t, 2, sites["KTST"])
	assert.Equal(t, 1, sites["KDIF"])

	// The poison pill was skipped, so no fourth message arrives.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no fourth message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
