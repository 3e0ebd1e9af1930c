package forward

import (
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Level is a differentiation scope. Dual values created inside a level carry
// tangents only while that level is active; when the level exits, every
// tangent association it holds is detached. This prevents a later, unrelated
// forward-mode computation from picking up stale tangents.
//
// Levels form a strict stack: they must be exited in LIFO order.
type Level struct {
	id       int
	tangents map[*tensor.RawTensor]*tensor.RawTensor
	closed   bool
}

// ID returns the level's position in the nesting order (outermost = 0).
func (l *Level) ID() int {
	return l.id
}

// Closed reports whether the level has been exited.
func (l *Level) Closed() bool {
	return l.closed
}

// NumDuals returns the number of live tangent associations in this level.
func (l *Level) NumDuals() int {
	return len(l.tangents)
}

// associate records v's tangent in this level.
func (l *Level) associate(v, t *tensor.RawTensor) {
	l.tangents[v] = t
}

// tangent returns v's live tangent, or nil if v carries none in this level.
func (l *Level) tangent(v *tensor.RawTensor) *tensor.RawTensor {
	if l.closed {
		return nil
	}
	return l.tangents[v]
}

// detachAll drops every tangent association held by the level.
func (l *Level) detachAll() {
	for k := range l.tangents {
		delete(l.tangents, k)
	}
}

// EnterLevel begins a new differentiation region. Levels nest strictly:
// the returned level becomes the innermost active one.
func (b *ForwardBackend[B]) EnterLevel() *Level {
	lvl := &Level{
		id:       b.nextID,
		tangents: make(map[*tensor.RawTensor]*tensor.RawTensor),
	}
	b.nextID++
	b.levels = append(b.levels, lvl)
	return lvl
}

// ExitLevel ends a differentiation region, detaching all tangents created
// within it. Subsequent UnpackDual calls on values from this level return
// no tangent.
//
// Exiting an already-exited level is a no-op. Exiting a level that is not
// the innermost active one is a reported error and performs no cleanup.
func (b *ForwardBackend[B]) ExitLevel(lvl *Level) error {
	if lvl.closed {
		return nil // idempotent teardown
	}
	top := b.activeLevel()
	if top != lvl {
		innermost := -1
		if top != nil {
			innermost = top.id
		}
		return &LevelNestingError{Exiting: lvl.id, Innermost: innermost}
	}

	b.levels = b.levels[:len(b.levels)-1]
	lvl.detachAll()
	lvl.closed = true
	b.nextID--
	return nil
}

// WithLevel runs fn inside a fresh differentiation level and guarantees the
// level is torn down on every exit path, including error and panic paths.
func (b *ForwardBackend[B]) WithLevel(fn func(lvl *Level) error) error {
	lvl := b.EnterLevel()
	defer func() {
		_ = b.ExitLevel(lvl)
	}()
	return fn(lvl)
}

// activeLevel returns the innermost active level, or nil when none is open.
func (b *ForwardBackend[B]) activeLevel() *Level {
	if len(b.levels) == 0 {
		return nil
	}
	return b.levels[len(b.levels)-1]
}
