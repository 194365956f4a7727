// Package capture implements per-test outcome capture.
//
// A test body receives a *T bound to the one test it is executing. The abort
// helpers on T (Done, Fail, Panic, FailNow and a failed Assert) stop the body
// immediately and hand their status to the capture point established by Run,
// skipping every statement after the call. A body that returns normally
// passes, unless it recorded a non-fatal failure through Errorf.
//
// T satisfies testify's require.TestingT, so assert and require can be used
// inside test bodies.
package capture
