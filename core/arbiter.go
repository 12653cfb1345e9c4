package core

// Priority is a static task priority. A pended task runs as soon as the
// current priority drops below its own; 0 is the idle loop.
type Priority uint8

const PriorityIdle Priority = 0

// MaxTasks bounds the number of tasks an Arbiter can bind (one pending bit each).
const MaxTasks = 32

// TaskFunc is the body of a task. It runs to completion.
type TaskFunc func()

// Task is a unit of deferred work with a fixed priority. A task never runs
// concurrently with itself: pending it while it runs makes it run once more
// after it returns.
type Task struct {
	name     string
	priority Priority
	bit      uint32
	run      TaskFunc
	arb      *Arbiter
	runs     uint32
}

// Name returns the name the task was bound with
func (t *Task) Name() string { return t.name }

// Priority returns the task's static priority
func (t *Task) Priority() Priority { return t.priority }

// Runs returns how many times the task body has completed
func (t *Task) Runs() uint32 { return t.runs }

// Arbiter is a fixed-priority, run-to-completion scheduler. Interrupt
// handlers only mark tasks pending (PendFromISR); tasks run from the main
// loop (Poll) or nested inside a lower-priority task when it pends a
// higher-priority one or releases a resource lock.
type Arbiter struct {
	tasks   []*Task // highest priority first
	pending uint32  // shared with interrupt handlers, guarded by disableInterrupts
	current Priority
	active  *Task
	faults  uint32

	// OnFault is called with the task whose body panicked. The task is
	// abandoned and the arbiter carries on with the next pending task.
	OnFault func(t *Task, reason interface{})
}

// NewArbiter creates an empty arbiter
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Bind registers a task. Tasks must be bound before resources that name
// them are created, and before the first Pend.
func (a *Arbiter) Bind(name string, prio Priority, run TaskFunc) *Task {
	if prio == PriorityIdle {
		panic("core: task " + name + " needs a priority above idle")
	}
	if len(a.tasks) >= MaxTasks {
		panic("core: too many tasks")
	}
	t := &Task{
		name:     name,
		priority: prio,
		bit:      1 << uint(len(a.tasks)),
		run:      run,
		arb:      a,
	}

	// Keep tasks sorted by priority, earlier binds first within a level
	i := len(a.tasks)
	a.tasks = append(a.tasks, t)
	for i > 0 && a.tasks[i-1].priority < prio {
		a.tasks[i] = a.tasks[i-1]
		i--
	}
	a.tasks[i] = t
	return t
}

// Current returns the priority the arbiter is running at, including any
// ceiling raised by a held resource.
func (a *Arbiter) Current() Priority { return a.current }

// Active returns the running task, or nil from the idle loop.
func (a *Arbiter) Active() *Task { return a.active }

// Faults returns how many task bodies have panicked
func (a *Arbiter) Faults() uint32 { return a.faults }

// Pend marks t pending from task or idle context and runs every pending
// task that outranks the current priority before returning.
func (a *Arbiter) Pend(t *Task) {
	a.mark(t)
	a.runEligible()
}

// PendFromISR marks t pending without running anything. Safe to call from
// an interrupt handler; the task runs at the next Poll or scheduling point.
func (a *Arbiter) PendFromISR(t *Task) {
	a.mark(t)
}

// IsPending reports whether t is waiting to run
func (a *Arbiter) IsPending(t *Task) bool {
	state := disableInterrupts()
	p := a.pending & t.bit
	restoreInterrupts(state)
	return p != 0
}

// Poll runs every pending task that outranks the current priority. The main
// loop calls it repeatedly; it returns true if anything ran.
func (a *Arbiter) Poll() bool {
	return a.runEligible()
}

func (a *Arbiter) mark(t *Task) {
	if t.arb != a {
		panic("core: task " + t.name + " belongs to another arbiter")
	}
	state := disableInterrupts()
	a.pending |= t.bit
	restoreInterrupts(state)
}

// next claims the highest-priority pending task above the current priority.
// A running task is never eligible, since current is at least its priority.
func (a *Arbiter) next() *Task {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if a.pending == 0 {
		return nil
	}
	for _, t := range a.tasks {
		if t.priority <= a.current {
			return nil
		}
		if a.pending&t.bit != 0 {
			a.pending &^= t.bit
			return t
		}
	}
	return nil
}

func (a *Arbiter) runEligible() bool {
	ran := false
	for {
		t := a.next()
		if t == nil {
			return ran
		}
		a.execute(t)
		ran = true
	}
}

func (a *Arbiter) execute(t *Task) {
	savedPrio, savedActive := a.current, a.active
	a.current, a.active = t.priority, t
	defer func() {
		a.current, a.active = savedPrio, savedActive
		if r := recover(); r != nil {
			a.faults++
			RecordEvent(EvtTaskFault, uint8(t.priority), a.faults, 0)
			if a.OnFault != nil {
				a.OnFault(t, r)
			}
			return
		}
		t.runs++
	}()
	t.run()
}
