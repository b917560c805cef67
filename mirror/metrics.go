// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const metricsNamespace = "chainmirror"

type metrics struct {
	latestHeight prometheus.Gauge
	canonHeight  prometheus.Gauge
	tailHeight   prometheus.Gauge

	appended prometheus.Counter
	rejected *prometheus.CounterVec
	pruned   prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		latestHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "latest_height",
			Help:      "Height of the latest mirrored block",
		}),
		canonHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "canon_height",
			Help:      "Height of the canon block",
		}),
		tailHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "tail_height",
			Help:      "Height of the tail block",
		}),
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "appended_blocks",
			Help:      "Number of blocks appended to the mirror",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_blocks",
			Help:      "Number of submitted blocks that were not appended",
		}, []string{"reason"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pruned_blocks",
			Help:      "Number of blocks deleted from behind the tail",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.latestHeight),
		registerer.Register(m.canonHeight),
		registerer.Register(m.tailHeight),
		registerer.Register(m.appended),
		registerer.Register(m.rejected),
		registerer.Register(m.pruned),
	)
	return m, errs.Err
}

func rejectReason(err error) string {
	var (
		noParent      *NoParentError
		alreadyStored *BlockAlreadyInDBError
	)
	switch {
	case errors.Is(err, ErrInvalidHeader):
		return "invalid_header"
	case errors.As(err, &alreadyStored):
		return "already_in_db"
	case errors.As(err, &noParent):
		return "no_parent"
	default:
		return "store_failure"
	}
}
