package adapter

// Settled returns a channel that is closed or signalled once v settles, and
// false when v is not awaitable. Recognised shapes:
//
//   - anything with Done() <-chan struct{}, context.Context included
//   - chan struct{} and <-chan struct{}
//   - anything with Wait() error, such as an errgroup.Group
//   - anything with Wait(), such as a *sync.WaitGroup
func Settled(v any) (<-chan struct{}, bool) {
	switch r := v.(type) {
	case nil:
		return nil, false
	case interface{ Done() <-chan struct{} }:
		return r.Done(), true
	case chan struct{}:
		return r, true
	case <-chan struct{}:
		return r, true
	case interface{ Wait() error }:
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = r.Wait()
		}()
		return done, true
	case interface{ Wait() }:
		done := make(chan struct{})
		go func() {
			defer close(done)
			r.Wait()
		}()
		return done, true
	}
	return nil, false
}

// tickWhenSettled ticks the counter of inst on the host loop once result
// settles. It returns immediately.
func tickWhenSettled(vm VM, inst *Instance, result any) {
	done, ok := Settled(result)
	if !ok || done == nil {
		return
	}
	go func() {
		<-done
		vm.NextTick(func() {
			inst.counter.Tick()
		})
	}()
}
