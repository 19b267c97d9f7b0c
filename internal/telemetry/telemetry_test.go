package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "missing service version",
			mutate:  func(c *Config) { c.ServiceVersion = "" },
			wantErr: ErrMissingServiceVersion,
		},
		{
			name:    "negative sample rate",
			mutate:  func(c *Config) { c.SampleRate = -0.1 },
			wantErr: ErrInvalidSampleRate,
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.SampleRate = 1.1 },
			wantErr: ErrInvalidSampleRate,
		},
		{name: "sample rate zero", mutate: func(c *Config) { c.SampleRate = 0.0 }},
		{name: "sample rate one", mutate: func(c *Config) { c.SampleRate = 1.0 }},
		{name: "fractional sample rate", mutate: func(c *Config) { c.SampleRate = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	t.Run("rejects an invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.ServiceName = ""

		tel, err := Initialize(context.Background(), cfg)

		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if tel != nil {
			t.Error("expected nil telemetry, got non-nil")
		}
	})

	t.Run("sets up only the tracer provider when tracing is enabled", func(t *testing.T) {
		tel := initTelemetry(t, true, false)

		if tel.TracerProvider() == nil {
			t.Error("expected tracer provider, got nil")
		}
		if tel.MeterProvider() != nil {
			t.Error("expected nil meter provider, got non-nil")
		}
	})

	t.Run("sets up only the meter provider when metrics are enabled", func(t *testing.T) {
		tel := initTelemetry(t, false, true)

		if tel.TracerProvider() != nil {
			t.Error("expected nil tracer provider, got non-nil")
		}
		if tel.MeterProvider() == nil {
			t.Error("expected meter provider, got nil")
		}
	})

	t.Run("sets up both providers when both signals are enabled", func(t *testing.T) {
		tel := initTelemetry(t, true, true)

		if tel.TracerProvider() == nil {
			t.Error("expected tracer provider, got nil")
		}
		if tel.MeterProvider() == nil {
			t.Error("expected meter provider, got nil")
		}
	})

	t.Run("sets up neither provider when both signals are disabled", func(t *testing.T) {
		tel := initTelemetry(t, false, false)

		if tel.TracerProvider() != nil {
			t.Error("expected nil tracer provider, got non-nil")
		}
		if tel.MeterProvider() != nil {
			t.Error("expected nil meter provider, got non-nil")
		}
	})
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		wantDesc string
	}{
		{name: "zero rate never samples", rate: 0.0, wantDesc: "AlwaysOffSampler"},
		{name: "negative rate never samples", rate: -0.1, wantDesc: "AlwaysOffSampler"},
		{name: "rate of one always samples", rate: 1.0, wantDesc: "AlwaysOnSampler"},
		{name: "rate above one always samples", rate: 1.5, wantDesc: "AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := samplerFor(tt.rate)

			if sampler == nil {
				t.Fatal("expected sampler, got nil")
			}
			if sampler.Description() != tt.wantDesc {
				t.Errorf("expected %s, got %s", tt.wantDesc, sampler.Description())
			}
		})
	}

	t.Run("fractional rate is parent based", func(t *testing.T) {
		if samplerFor(0.5) == nil {
			t.Fatal("expected sampler, got nil")
		}
	})
}

func TestShutdown(t *testing.T) {
	t.Run("succeeds with no providers initialized", func(t *testing.T) {
		tel := &Telemetry{}

		if err := tel.Shutdown(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("succeeds with every signal combination", func(t *testing.T) {
		combos := []struct {
			name    string
			tracing bool
			metrics bool
		}{
			{name: "tracing only", tracing: true},
			{name: "metrics only", metrics: true},
			{name: "both", tracing: true, metrics: true},
		}

		for _, combo := range combos {
			t.Run(combo.name, func(t *testing.T) {
				// initTelemetry registers Shutdown as a cleanup and fails
				// the test if it errors.
				initTelemetry(t, combo.tracing, combo.metrics)
			})
		}
	})
}
