// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package supervisor runs Marquee's long-lived services under a suture v4
supervisor tree.

# Overview

Services are grouped into three layers so one failing layer never takes the
others down:

	marquee
	├── model-layer
	│   ├── TrainingService     (startup training and scheduled retrains)
	│   └── CacheJanitorService (purges results of superseded snapshots)
	├── events-layer
	│   └── eventprocessor.Subscriber (if NATS_ENABLED)
	└── api-layer
	    └── HTTPServerService

Crashed services restart with suture's decaying failure counter and back
off once FailureThreshold is crossed. Supervisor events are logged through
sutureslog on the slog bridge from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddModelService(services.NewTrainingService(tr, trainCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Canceling ctx stops every service; ShutdownTimeout bounds each one.
UnstoppedServiceReport names any that did not return in time.
*/
package supervisor
