package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
)

// ExecutionRepository stores executions as JSON documents under
// <root>/executions. Mutations are read-modify-write under a single
// lock, which is fine for the file backend's intended scale.
type ExecutionRepository struct {
	dir string
	mu  sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return r.write(execution)
}

func (r *ExecutionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(id)
}

func (r *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Execution{}, nil
	}

	if err != nil {
		return nil, persistence.NewExecutionError("ByWorkflow", workflowID, err)
	}

	executions := make([]*models.Execution, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *ExecutionRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.read(id)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return persistence.NewExecutionError("MarkRunning", id, persistence.ErrExecutionFinalized)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = startedAt

	return r.write(execution)
}

func (r *ExecutionRepository) AppendResult(ctx context.Context, id string, result models.NodeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.read(id)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return persistence.NewExecutionError("AppendResult", id, persistence.ErrExecutionFinalized)
	}

	execution.Log = append(execution.Log, result)

	return r.write(execution)
}

func (r *ExecutionRepository) Finalize(ctx context.Context, id string, status models.ExecutionStatus, runError string, finishedAt time.Time) error {
	if !status.Terminal() {
		return persistence.NewExecutionError("Finalize", id, persistence.ErrInvalidStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.read(id)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return persistence.NewExecutionError("Finalize", id, persistence.ErrExecutionFinalized)
	}

	execution.Status = status
	execution.Error = runError
	execution.FinishedAt = &finishedAt

	return r.write(execution)
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.json", id))
}

func (r *ExecutionRepository) read(id string) (*models.Execution, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewExecutionError("read", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("read", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewExecutionError("read", id, err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) write(execution *models.Execution) error {
	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("write", execution.ID, err)
	}

	if err := os.WriteFile(r.path(execution.ID), data, fileMode); err != nil {
		return persistence.NewExecutionError("write", execution.ID, err)
	}

	return nil
}
