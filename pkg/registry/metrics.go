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

package registry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName                = "zkconfig.registry"
	metricRegistrationsTotal = "zkconfig_registrations_total"
	metricDescriptionsTotal  = "zkconfig_service_descriptions_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	registrationCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	descriptionCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	counter, err := meter.Int64Counter(
		metricRegistrationsTotal,
		metric.WithDescription("Total instance registrations by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	registrationCounter = counter

	descriptions, err := meter.Int64Counter(
		metricDescriptionsTotal,
		metric.WithDescription("Total service descriptions written, read or deleted"),
	)
	if err != nil {
		otel.Handle(err)
	}
	descriptionCounter = descriptions
}

// RecordRegistration counts one registration attempt.
func RecordRegistration(ctx context.Context, serviceID, outcome string) {
	meterOnce.Do(initMeter)
	if registrationCounter == nil {
		return
	}

	registrationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service_id", serviceID),
		attribute.String("outcome", outcome),
	))
}

// RecordDescriptions counts service descriptions touched by action.
func RecordDescriptions(ctx context.Context, action string, count int) {
	if count == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if descriptionCounter == nil {
		return
	}

	descriptionCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("action", action)))
}
