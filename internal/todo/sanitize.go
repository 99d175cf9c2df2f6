package todo

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/vavebg/ops-console/internal/models"
)

// sanitize normalizes a persisted todo payload. Entries with empty text are
// dropped, out-of-range levels are coerced to the minimum, a missing or
// non-numeric remaining value is recomputed from the allocated hours, and a
// timer can only be running on a live, unexpired item. A payload that is not
// a list yields an empty collection.
func sanitize(data []byte) []models.TodoItem {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	items := make([]models.TodoItem, 0, len(raw))
	for _, entry := range raw {
		var fields map[string]any
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		if item, ok := sanitizeItem(fields); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func sanitizeItem(fields map[string]any) (models.TodoItem, bool) {
	text, _ := asString(fields["text"])
	text = strings.TrimSpace(text)
	if text == "" {
		return models.TodoItem{}, false
	}

	hours, ok := asInt(fields["allocated_hours"])
	if !ok || !models.ValidLevel(hours) {
		hours = models.MinLevel
	}

	priority, ok := asInt(fields["priority"])
	if !ok || !models.ValidLevel(priority) {
		priority = models.MinLevel
	}

	remaining, ok := asInt(fields["remaining_seconds"])
	if !ok {
		remaining = hours * 3600
	}

	id, _ := asString(fields["id"])
	if id == "" {
		id = uuid.NewString()
	}

	done, _ := fields["done"].(bool)
	isRunning, _ := fields["is_running"].(bool)

	return models.TodoItem{
		ID:               id,
		Text:             text,
		Priority:         priority,
		AllocatedHours:   hours,
		RemainingSeconds: remaining,
		Done:             done,
		IsRunning:        isRunning && !done && remaining > 0,
	}, true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
