package expand

// Config bundles everything a single expansion call needs: the
// environment to read/write variables against and the option flags that
// change pathname/field-splitting behavior. One Config is built per
// command the executor runs and threaded through every expansion call for
// that command's words.
type Config struct {
	Env Env

	NoGlob      bool // set -f / -o noglob
	NoCaseGlob  bool // shopt -s nocaseglob
	DotGlob     bool // shopt -s dotglob
	NullGlob    bool // shopt -s nullglob
	FailGlob    bool // shopt -s failglob
	ExtGlob     bool // shopt -s extglob
	GlobStar    bool // shopt -s globstar
	NoUnset     bool // set -u
}

func (cfg *Config) envGet(name string) string {
	return cfg.Env.Get(name).String()
}

func (cfg *Config) envSet(name, val string) error {
	we, ok := cfg.Env.(WriteEnv)
	if !ok {
		return nil
	}
	return we.Set(name, Variable{IsSet: true, Kind: Scalar, Str: val})
}

// arithEnvAdapter lets the arithmetic evaluator in arith.go operate
// against a Config without that file needing to know about Env/Variable.
type arithEnvAdapter struct{ cfg *Config }

func (a arithEnvAdapter) Get(name string) string     { return a.cfg.envGet(name) }
func (a arithEnvAdapter) Set(name, val string) error { return a.cfg.envSet(name, val) }

// Arithm evaluates a raw arithmetic expression against cfg's environment.
func (cfg *Config) Arithm(expr string) (int64, error) {
	return EvalArith(expr, arithEnvAdapter{cfg})
}
