// Package engine orchestrates the rule modules: it invokes every
// applicable module with per-module failure isolation, then merges,
// deduplicates, sorts, and summarizes the resulting alerts.
//
// Evaluation is single-threaded, synchronous, and stateless across
// calls; identical input yields an identical result.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/registry"
)

// Engine runs the configured rule modules over a patient snapshot.
// Read-only after construction.
type Engine struct {
	modules  []domain.RuleModule
	registry *registry.Registry
	log      *logrus.Logger
}

// New builds an engine, validating every module's declared alert codes
// against the registry. Registry violations are construction-time
// defects, never runtime conditions.
func New(log *logrus.Logger, reg *registry.Registry, modules ...domain.RuleModule) (*Engine, error) {
	seen := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		if _, dup := seen[m.Name()]; dup {
			return nil, fmt.Errorf("duplicate rule module %q", m.Name())
		}
		seen[m.Name()] = struct{}{}
		if err := reg.ValidateCodes(m.Name(), m.AlertCodes()); err != nil {
			return nil, fmt.Errorf("validating module alert codes: %w", err)
		}
	}

	log.WithField("module_count", len(modules)).Info("Evaluation engine initialized")
	return &Engine{modules: modules, registry: reg, log: log}, nil
}

// Evaluate runs the full pipeline: validate input, run each applicable
// module in isolation, then merge, deduplicate, sort, and summarize.
// It never returns an error; malformed input short-circuits into a
// CRITICAL validation alert because clinically confident output from
// bad input is unacceptable.
func (e *Engine) Evaluate(p *domain.PatientState) *domain.EvaluationResult {
	start := time.Now()
	result := &domain.EvaluationResult{EvaluationID: uuid.NewString()}

	if err := p.Validate(); err != nil {
		result.Alerts = []domain.Alert{{
			Code:     registry.CodeInvalidInput,
			Severity: domain.SeverityCritical,
			Message:  "Evaluation input failed validation",
			Reason:   err.Error(),
			Source:   "engine",
		}}
		result.Summarize()
		result.Elapsed = time.Since(start)
		e.log.WithError(err).Warn("Rejected malformed evaluation input")
		return result
	}

	var merged []domain.Alert
	for _, mod := range e.modules {
		run := domain.ModuleRun{Module: mod.Name(), Eligible: mod.Eligible(p)}
		if run.Eligible {
			modStart := time.Now()
			out := e.invoke(mod, p)
			run.Duration = time.Since(modStart)
			run.Applies = out.Applies
			run.Failed = outFailed(out)
			run.AlertCount = len(out.Alerts)
			merged = append(merged, out.Alerts...)
		}
		result.ModuleRuns = append(result.ModuleRuns, run)
	}

	result.Alerts = dedupe(merged)
	sortBySeverity(result.Alerts)
	result.Summarize()
	result.Elapsed = time.Since(start)

	e.log.WithFields(result.LogFields()).Info("Evaluation completed")
	return result
}

// invoke is the uniform isolated-invocation wrapper: every module is
// governed by one failure policy. A panic or returned error becomes a
// single synthetic HIGH alert naming the module, and the evaluation
// continues.
func (e *Engine) invoke(mod domain.RuleModule, p *domain.PatientState) (out *domain.ModuleOutput) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"module": mod.Name(),
				"panic":  fmt.Sprintf("%v", r),
			}).Error("Rule module panicked")
			out = failureOutput(mod.Name(), fmt.Sprintf("panic: %v", r))
		}
	}()

	out, err := mod.Evaluate(p)
	if err != nil {
		e.log.WithError(err).WithField("module", mod.Name()).Error("Rule module failed")
		return failureOutput(mod.Name(), err.Error())
	}
	if out == nil {
		out = &domain.ModuleOutput{}
	}
	return out
}

func failureOutput(module, detail string) *domain.ModuleOutput {
	return &domain.ModuleOutput{
		Applies: true,
		Alerts: []domain.Alert{{
			Code:     registry.CodeSystemFunctionError,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Rule module %s failed; its findings are missing from this evaluation", module),
			Reason:   detail,
			Source:   module,
			Extras:   map[string]any{"failed_module": module},
		}},
		Notes: map[string]any{"failed": true},
	}
}

func outFailed(out *domain.ModuleOutput) bool {
	if out == nil || out.Notes == nil {
		return false
	}
	failed, _ := out.Notes["failed"].(bool)
	return failed
}

// dedupKey identifies duplicate alerts. The key includes the sorted
// multi-drug set so two combination alerts sharing a code but naming
// different drug sets never collapse.
type dedupKey struct {
	code     string
	drug     string
	drugsKey string
}

func keyFor(a *domain.Alert) dedupKey {
	drugs := make([]string, len(a.DrugsInvolved))
	for i, d := range a.DrugsInvolved {
		drugs[i] = strings.ToLower(d)
	}
	sort.Strings(drugs)
	return dedupKey{
		code:     strings.ToLower(a.Code),
		drug:     strings.ToLower(a.Drug),
		drugsKey: strings.Join(drugs, "|"),
	}
}

// dedupe collapses duplicate alerts. On collision the lower severity
// rank (more severe) wins and replaces the stored entry in place;
// equal ranks keep the first-seen alert and concatenate source labels
// for traceability.
func dedupe(alerts []domain.Alert) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	index := make(map[dedupKey]int, len(alerts))

	for _, a := range alerts {
		k := keyFor(&a)
		at, exists := index[k]
		if !exists {
			index[k] = len(out)
			out = append(out, a)
			continue
		}

		stored := &out[at]
		switch {
		case a.Severity.Rank() < stored.Severity.Rank():
			a.Source = stored.Source + "," + a.Source
			out[at] = a
		case a.Severity.Rank() == stored.Severity.Rank():
			if !strings.Contains(","+stored.Source+",", ","+a.Source+",") {
				stored.Source += "," + a.Source
			}
		}
	}
	return out
}

// sortBySeverity orders alerts by ascending severity rank. The sort is
// stable: within equal severity, module execution order is preserved.
func sortBySeverity(alerts []domain.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
}
