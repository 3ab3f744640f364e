// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukex/supplyflow/pkg/actions/approval"
	"github.com/dukex/supplyflow/pkg/actions/enqueue"
	"github.com/dukex/supplyflow/pkg/actions/httprequest"
	logaction "github.com/dukex/supplyflow/pkg/actions/log"
	notifyaction "github.com/dukex/supplyflow/pkg/actions/notify"
	"github.com/dukex/supplyflow/pkg/actions/transition"
	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/lifecycle"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/notify"
	"github.com/dukex/supplyflow/pkg/registry"
	"github.com/redis/go-redis/v9"
)

// ActionDeps are the collaborators built-in actions call into. Nil fields
// leave the matching actions unregistered.
type ActionDeps struct {
	Notifier     notify.Sink
	Transitioner transition.Transitioner
	Approvals    approval.Creator
	Queue        enqueue.Pusher
	HTTPClient   *http.Client
}

func registerNativeActions(reg *registry.Registry, deps ActionDeps) {
	reg.MustRegisterAction(logaction.NewActionFactory())
	reg.MustRegisterAction(httprequest.NewActionFactory(deps.HTTPClient))

	if deps.Notifier != nil {
		reg.MustRegisterAction(notifyaction.NewActionFactory(deps.Notifier))
		reg.MustRegisterAction(notifyaction.NewBroadcastFactory(deps.Notifier))
	}

	if deps.Transitioner != nil {
		reg.MustRegisterAction(transition.NewActionFactory(deps.Transitioner))
	}

	if deps.Approvals != nil {
		reg.MustRegisterAction(approval.NewActionFactory(deps.Approvals))
	}

	if deps.Queue != nil {
		reg.MustRegisterAction(enqueue.NewActionFactory(deps.Queue))
	}
}

func NewRegistry(log *slog.Logger, deps ActionDeps) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeActions(reg, deps)

	return reg
}

var errOffline = errors.New("action collaborators are not available offline")

// offline stands in for live collaborators when rules only need validating.
type offline struct{}

func (offline) Transition(context.Context, lifecycle.Request) (*models.Document, error) {
	return nil, errOffline
}

func (offline) Create(context.Context, approvals.CreateRequest) (*models.ApprovalGroup, error) {
	return nil, errOffline
}

func (offline) RPush(_ context.Context, _ string, _ ...any) *redis.IntCmd {
	return redis.NewIntResult(0, errOffline)
}

// NewValidationRegistry knows every built-in action type. Actions that need
// live collaborators fail if executed.
func NewValidationRegistry(log *slog.Logger) *registry.Registry {
	return NewRegistry(log, ActionDeps{
		Notifier:     notify.NewLogSink(log),
		Transitioner: offline{},
		Approvals:    offline{},
		Queue:        offline{},
	})
}
