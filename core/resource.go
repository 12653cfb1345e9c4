package core

// Resource is state shared between tasks under the priority-ceiling
// protocol. Its ceiling is the highest priority among the tasks declared as
// users; while any user holds the lock the arbiter runs at the ceiling, so no
// other user can preempt the holder. Tasks above the ceiling still preempt.
type Resource[T any] struct {
	name     string
	arb      *Arbiter
	ceiling  Priority
	users    uint32
	lockFree bool
	held     bool
	value    T
}

// NewResource declares a resource shared by the given tasks.
func NewResource[T any](a *Arbiter, name string, value T, users ...*Task) *Resource[T] {
	if len(users) == 0 {
		panic("core: resource " + name + " has no users")
	}
	r := &Resource[T]{name: name, arb: a, value: value}
	for _, t := range users {
		if t.arb != a {
			panic("core: resource " + name + " user " + t.name + " belongs to another arbiter")
		}
		r.users |= t.bit
		if t.priority > r.ceiling {
			r.ceiling = t.priority
		}
	}
	return r
}

// NewLockFreeResource declares a resource that is accessed without raising
// the priority. That is only sound when every user runs at the same
// priority, since tasks at one level never preempt each other; any other
// user set panics.
func NewLockFreeResource[T any](a *Arbiter, name string, value T, users ...*Task) *Resource[T] {
	r := NewResource(a, name, value, users...)
	for _, t := range users {
		if t.priority != r.ceiling {
			panic("core: resource " + name + " shared across priorities cannot be lock-free")
		}
	}
	r.lockFree = true
	return r
}

// Name returns the resource name
func (r *Resource[T]) Name() string { return r.name }

// Ceiling returns the highest user priority
func (r *Resource[T]) Ceiling() Priority { return r.ceiling }

// LockFree reports whether Lock skips the ceiling raise
func (r *Resource[T]) LockFree() bool { return r.lockFree }

// Lock runs fn with exclusive access to the value. It may be called from a
// declared user task, or from the idle loop during setup. Tasks that were
// pended while the lock was held and outrank the caller run on release.
func (r *Resource[T]) Lock(fn func(v *T)) {
	a := r.arb
	if t := a.active; t != nil && r.users&t.bit == 0 {
		panic("core: task " + t.name + " is not a user of " + r.name)
	}
	if r.held {
		panic("core: resource " + r.name + " locked twice")
	}
	if r.lockFree {
		r.held = true
		fn(&r.value)
		r.held = false
		return
	}

	saved := a.current
	if r.ceiling > saved {
		a.current = r.ceiling
	}
	r.held = true
	func() {
		defer func() {
			r.held = false
			a.current = saved
		}()
		fn(&r.value)
	}()
	if r.ceiling > saved {
		a.runEligible()
	}
}
