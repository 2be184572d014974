//go:build !debug

package threadcheck

func SetMainThread()                    {}
func SetProcessThread()                 {}
func AssertMain(operation string)       {}
func AssertProcess(operation string)    {}
func AssertNotProcess(operation string) {}
