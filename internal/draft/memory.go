package draft

import "context"

// MemoryPersistence keeps the cart only for the process lifetime. Used in
// tests and for ephemeral kiosk setups that should always start clean.
type MemoryPersistence struct {
	lines []Line
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Load(context.Context) ([]Line, error) {
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

func (m *MemoryPersistence) Save(_ context.Context, lines []Line) error {
	m.lines = make([]Line, len(lines))
	copy(m.lines, lines)
	return nil
}

func (m *MemoryPersistence) Wipe(context.Context) error {
	m.lines = nil
	return nil
}
