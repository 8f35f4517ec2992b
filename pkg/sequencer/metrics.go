/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sequencer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName               = "zkconfig.sequencer"
	metricOperationsTotal   = "zkconfig_operations_total"
	metricOperationDuration = "zkconfig_operation_duration_seconds"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	operationCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	durationHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	counter, err := meter.Int64Counter(
		metricOperationsTotal,
		metric.WithDescription("Total store operations executed by the sequencer"),
	)
	if err != nil {
		otel.Handle(err)
	}
	operationCounter = counter

	hist, err := meter.Float64Histogram(
		metricOperationDuration,
		metric.WithDescription("Duration of store operations executed by the sequencer"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	durationHistogram = hist
}

// recordOperation records the outcome and duration of one operation.
func recordOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)

	if operationCounter != nil {
		operationCounter.Add(ctx, 1, attrs)
	}

	if durationHistogram != nil {
		durationHistogram.Record(ctx, duration.Seconds(), attrs)
	}
}
