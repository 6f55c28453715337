package api

// AppSpecializeArgs is the native (v3+) view of the arguments passed to an
// application specialize call. Modules may change fields in place.
type AppSpecializeArgs struct {
	UID            int
	GID            int
	GIDs           []int
	RuntimeFlags   int
	RLimits        [][]int
	MountExternal  int
	SEInfo         string
	NiceName       string
	InstructionSet string
	AppDataDir     string

	// FdsToIgnore is the bridge's ignore-list slot. A nil slot means the
	// bridge has nowhere to receive extra descriptors; a nil *slot means the
	// slot exists but currently holds no array.
	FdsToIgnore *[]int

	IsChildZygote           *bool
	IsTopApp                *bool
	PkgDataInfoList         []string
	WhitelistedDataInfoList []string
	MountDataDirs           *bool
	MountStorageDirs        *bool
	MountSysprop            *bool
}

// LegacyAppSpecializeArgs is the argument shape modules built against API
// versions 1 and 2 expect. Every field aliases the native struct it was
// built from, so writes are visible to the bridge.
type LegacyAppSpecializeArgs struct {
	UID            *int
	GID            *int
	GIDs           *[]int
	RuntimeFlags   *int
	MountExternal  *int
	SEInfo         *string
	NiceName       *string
	InstructionSet *string
	AppDataDir     *string

	IsChildZygote           *bool
	IsTopApp                *bool
	PkgDataInfoList         *[]string
	WhitelistedDataInfoList *[]string
	MountDataDirs           *bool
	MountStorageDirs        *bool
}

// Legacy repacks the native arguments into the v1 shape.
func (a *AppSpecializeArgs) Legacy() *LegacyAppSpecializeArgs {
	return &LegacyAppSpecializeArgs{
		UID:                     &a.UID,
		GID:                     &a.GID,
		GIDs:                    &a.GIDs,
		RuntimeFlags:            &a.RuntimeFlags,
		MountExternal:           &a.MountExternal,
		SEInfo:                  &a.SEInfo,
		NiceName:                &a.NiceName,
		InstructionSet:          &a.InstructionSet,
		AppDataDir:              &a.AppDataDir,
		IsChildZygote:           a.IsChildZygote,
		IsTopApp:                a.IsTopApp,
		PkgDataInfoList:         &a.PkgDataInfoList,
		WhitelistedDataInfoList: &a.WhitelistedDataInfoList,
		MountDataDirs:           a.MountDataDirs,
		MountStorageDirs:        a.MountStorageDirs,
	}
}

// ServerSpecializeArgs are the arguments of a system-service fork.
type ServerSpecializeArgs struct {
	UID                   int
	GID                   int
	GIDs                  []int
	RuntimeFlags          int
	PermittedCapabilities int64
	EffectiveCapabilities int64
}
