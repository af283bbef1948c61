package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "BeatCanvas/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
	productionEnvironment    = "production"
)

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      *cloudwatch.Client
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != productionEnvironment {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false, environment: environment}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// Enabled reports whether metrics are sent
func (m *Client) Enabled() bool {
	return m != nil && m.enabled
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	go func() {
		ctx := context.Background()
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := m.dimensions("Endpoint", endpoint)

		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}

		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record APILatency metric: %v", err)
		}
	}()
}

// RecordGenerationAttempt records one provider call and its outcome
func (m *Client) RecordGenerationAttempt(outcome string) {
	if !m.Enabled() {
		return
	}

	go func() {
		if err := m.putMetric(context.Background(), "GenerationAttempts", 1, types.StandardUnitCount,
			m.dimensions("Outcome", outcome)); err != nil {
			log.Printf("Failed to record GenerationAttempts metric: %v", err)
		}
	}()
}

// RecordGenerationDuration records generation request duration
func (m *Client) RecordGenerationDuration(duration time.Duration, success bool) {
	if !m.Enabled() {
		return
	}

	go func() {
		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(context.Background(), "GenerationDuration", durationMs, types.StandardUnitMilliseconds,
			m.dimensions("Success", boolToString(success))); err != nil {
			log.Printf("Failed to record GenerationDuration metric: %v", err)
		}
	}()
}

// RecordTrackExtensions records how many tracks were looped
func (m *Client) RecordTrackExtensions(count int) {
	if !m.Enabled() {
		return
	}

	go func() {
		if err := m.putMetric(context.Background(), "TrackExtensions", float64(count), types.StandardUnitCount,
			m.dimensions("", "")); err != nil {
			log.Printf("Failed to record TrackExtensions metric: %v", err)
		}
	}()
}

// RecordRenderDuration records the duration of one render stage
func (m *Client) RecordRenderDuration(stage string, duration time.Duration, success bool) {
	if !m.Enabled() {
		return
	}

	go func() {
		dimensions := append(m.dimensions("Stage", stage), types.Dimension{
			Name:  aws.String("Success"),
			Value: aws.String(boolToString(success)),
		})
		if err := m.putMetric(context.Background(), "RenderDuration", float64(duration.Milliseconds()),
			types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record RenderDuration metric: %v", err)
		}
	}()
}

// dimensions returns the environment dimension plus an optional named one
func (m *Client) dimensions(name, value string) []types.Dimension {
	dims := []types.Dimension{
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
	if name != "" {
		dims = append(dims, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return dims
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	ctx context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.Enabled() || m.client == nil {
		return nil
	}

	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
