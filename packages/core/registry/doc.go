// Package registry holds the tests known to a partest binary.
//
// Tests register themselves from init functions, usually into Default:
//
//	func init() {
//		registry.Register(registry.Test{
//			Name:  "cache/evict",
//			Func:  testEvict,
//			Level: 1,
//		})
//	}
//
// Registration happens before the run begins. Once a runner starts, the
// registry is sealed and only test states change.
package registry
