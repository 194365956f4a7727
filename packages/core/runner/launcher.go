package runner

// Launcher starts a worker. An error means the worker never started.
type Launcher interface {
	Launch(fn func()) error
}

type LauncherFunc func(fn func()) error

func (f LauncherFunc) Launch(fn func()) error {
	return f(fn)
}

// GoLauncher runs every worker on a new goroutine.
var GoLauncher Launcher = LauncherFunc(func(fn func()) error {
	go fn()
	return nil
})
