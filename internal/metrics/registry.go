// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes node observability as Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rird"

// Registry holds every collector registered by this package. A dedicated
// registry (rather than prometheus.DefaultRegisterer) keeps node metrics
// free of the process-default Go runtime collectors unless StartServer
// chooses to add them.
var Registry = prometheus.NewRegistry()
