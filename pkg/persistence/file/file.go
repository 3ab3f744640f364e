// Package file stores engine state as JSON files under a root directory.
// It suits single-process deployments and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/supplyflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root          string
	documents     *DocumentRepository
	rules         *RuleRepository
	approvals     *ApprovalRepository
	audit         *AuditRepository
	executionLogs *ExecutionLogRepository
}

// NewPersistence creates a file persistence rooted at root. A "file://" prefix is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		documents:     NewDocumentRepository(cleanRoot),
		rules:         NewRuleRepository(cleanRoot),
		approvals:     NewApprovalRepository(cleanRoot),
		audit:         NewAuditRepository(cleanRoot),
		executionLogs: NewExecutionLogRepository(cleanRoot),
	}
}

// Root is the directory holding the data files.
func (fp *Persistence) Root() string {
	return fp.root
}

// RulesDir is the directory holding one JSON file per rule.
func (fp *Persistence) RulesDir() string {
	return fp.rules.dir
}

func (fp *Persistence) DocumentRepository() persistence.DocumentRepository {
	return fp.documents
}

func (fp *Persistence) RuleRepository() persistence.RuleRepository {
	return fp.rules
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvals
}

func (fp *Persistence) AuditRepository() persistence.AuditRepository {
	return fp.audit
}

func (fp *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return fp.executionLogs
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists, creating it on first use.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(fp.root, 0750)
}
