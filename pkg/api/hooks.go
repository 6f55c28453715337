package api

// NativeMethod describes one runtime native method to replace. On return
// from a hook request Fn holds the previous implementation, or 0 if the
// method could not be found.
type NativeMethod struct {
	Name      string
	Signature string
	Fn        uintptr
}

// Env is the runtime bridge environment handed to every entry point. It is
// the only way to build arrays the bridge will accept back and to swap
// native method implementations.
type Env interface {
	NewIntArray(values []int) ([]int, error)
	HookNativeMethods(className string, methods []NativeMethod)
}

// Option is a module request that changes how the host treats it.
type Option int

const (
	// OptionForceDenylistUnmount forces the clean mount namespace for this
	// process regardless of its classification.
	OptionForceDenylistUnmount Option = iota
	// OptionDlcloseModuleLibrary asks the host to release the module after
	// post-specialization.
	OptionDlcloseModuleLibrary
)

func (o Option) String() string {
	switch o {
	case OptionForceDenylistUnmount:
		return "force_denylist_unmount"
	case OptionDlcloseModuleLibrary:
		return "dlclose_module_library"
	default:
		return "unknown"
	}
}
