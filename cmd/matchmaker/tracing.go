// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/zipkin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs a zipkin backed tracer provider. An empty endpoint keeps the no-op provider.
func setupTracing(endpoint string) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(b3.New())
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := zipkin.New(endpoint)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
