package exported

import (
	"github.com/worlddbs/power-actor/actors/builtin/account"
	"github.com/worlddbs/power-actor/actors/builtin/cron"
	init_ "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/builtin/system"
	"github.com/worlddbs/power-actor/actors/runtime"
)

// BuiltinActors returns the actors a VM installs at genesis, ordered by name.
// The power actor is returned with the default threshold policy.
func BuiltinActors() []runtime.VMActor {
	return []runtime.VMActor{
		account.Actor{},
		cron.Actor{},
		init_.Actor{},
		power.Actor{},
		system.Actor{},
	}
}
