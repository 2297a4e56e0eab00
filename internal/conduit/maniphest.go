package conduit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// GetTaskTransactions fetches the full transaction log of every task in ids.
// Tasks with an empty log are present with a nil slice.
func (c *Client) GetTaskTransactions(ctx context.Context, ids []int) (map[int][]domain.RawTransaction, error) {
	if len(ids) == 0 {
		return map[int][]domain.RawTransaction{}, nil
	}

	result, err := c.call(ctx, "maniphest.gettasktransactions", map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}

	feed := make(map[int][]domain.RawTransaction, len(ids))
	var parseErr error
	result.ForEach(func(key, value gjson.Result) bool {
		taskID, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("decode transactions: task key %q: %w", key.String(), err)
			return false
		}
		var records []domain.RawTransaction
		value.ForEach(func(_, record gjson.Result) bool {
			records = append(records, domain.RawTransaction(record.Raw))
			return true
		})
		feed[taskID] = records
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	slog.Debug("fetched task transactions", "tasks", len(feed))

	return feed, nil
}

// QueryTasks fetches metadata for the tasks in ids, keyed by task id.
func (c *Client) QueryTasks(ctx context.Context, ids []int) (map[int]*domain.Task, error) {
	if len(ids) == 0 {
		return map[int]*domain.Task{}, nil
	}

	result, err := c.call(ctx, "maniphest.query", map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}

	return decodeTasks(result)
}

// QueryProjectTasks fetches metadata for every task tagged with projectPHID.
func (c *Client) QueryProjectTasks(ctx context.Context, projectPHID string) (map[int]*domain.Task, error) {
	result, err := c.call(ctx, "maniphest.query", map[string]any{
		"projectPHIDs": []string{projectPHID},
	})
	if err != nil {
		return nil, err
	}

	return decodeTasks(result)
}

func decodeTasks(result gjson.Result) (map[int]*domain.Task, error) {
	tasks := make(map[int]*domain.Task)
	var decodeErr error
	result.ForEach(func(_, value gjson.Result) bool {
		id, err := strconv.Atoi(value.Get("id").String())
		if err != nil {
			decodeErr = fmt.Errorf("decode task %s: bad id: %w", value.Get("phid").String(), err)
			return false
		}
		task := &domain.Task{
			ID:        id,
			PHID:      value.Get("phid").String(),
			Title:     value.Get("title").String(),
			Status:    value.Get("status").String(),
			OwnerPHID: value.Get("ownerPHID").String(),
		}
		for _, p := range value.Get("projectPHIDs").Array() {
			task.ProjectPHID = append(task.ProjectPHID, p.String())
		}
		tasks[id] = task
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return tasks, nil
}
