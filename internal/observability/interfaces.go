// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Observable interface for all components that need observability
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string

	// SetObserver attaches the run observer
	SetObserver(observer *StandardObserver)
}

// Detail forwards to the debug observer when one is attached
func Detail(o *StandardObserver, component, detail string) {
	if o != nil && o.DebugObserver != nil {
		o.DebugObserver.LogDetail(component, detail)
	}
}

// Metric forwards to the debug observer when one is attached
func Metric(o *StandardObserver, component, metric string, value interface{}) {
	if o != nil && o.DebugObserver != nil {
		o.DebugObserver.LogMetric(component, metric, value)
	}
}
