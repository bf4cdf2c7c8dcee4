package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used in development and tests.
type Memory struct {
	mu       sync.RWMutex
	entities map[string]map[string]map[string]any
	links    map[string]map[string]string // "entity/id" -> relation -> targetID
	order    map[string][]string          // entity -> insertion-ordered ids
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entities: make(map[string]map[string]map[string]any),
		links:    make(map[string]map[string]string),
		order:    make(map[string][]string),
	}
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []Record{}
	for _, id := range m.order[q.Entity] {
		fields, ok := m.entities[q.Entity][id]
		if !ok {
			continue
		}
		if !m.matches(q, id, fields) {
			continue
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encoding record %s/%s: %w", q.Entity, id, err)
		}
		records = append(records, Record(data))
	}
	return records, nil
}

func (m *Memory) matches(q Query, id string, fields map[string]any) bool {
	for _, f := range q.Where {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok || s != f.Value {
			return false
		}
	}
	if q.WhereLink != nil {
		target, ok := m.links[q.Entity+"/"+id][q.WhereLink.Relation]
		if !ok || target != q.WhereLink.TargetID {
			return false
		}
	}
	return true
}

func (m *Memory) Transact(ctx context.Context, steps []Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, step := range steps {
		switch step.Op {
		case OpUpdate:
			byID := m.entities[step.Entity]
			if byID == nil {
				byID = make(map[string]map[string]any)
				m.entities[step.Entity] = byID
			}
			fields := byID[step.ID]
			if fields == nil {
				fields = make(map[string]any)
				byID[step.ID] = fields
				m.order[step.Entity] = append(m.order[step.Entity], step.ID)
			}
			for k, v := range normalize(step.Fields) {
				fields[k] = v
			}
		case OpLink:
			key := step.Entity + "/" + step.ID
			if m.links[key] == nil {
				m.links[key] = make(map[string]string)
			}
			m.links[key][step.Relation] = step.TargetID
		case OpDelete:
			delete(m.entities[step.Entity], step.ID)
			delete(m.links, step.Entity+"/"+step.ID)
		default:
			return fmt.Errorf("unknown step op %q", step.Op)
		}
	}
	return nil
}

// normalize round-trips fields through JSON so in-memory records hold the
// same representation the remote and postgres stores return (times as
// RFC3339 strings, numbers as float64).
func normalize(fields map[string]any) map[string]any {
	data, err := json.Marshal(fields)
	if err != nil {
		return fields
	}
	out := make(map[string]any, len(fields))
	if err := json.Unmarshal(data, &out); err != nil {
		return fields
	}
	return out
}
