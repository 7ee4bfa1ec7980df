// Package config loads and validates run configuration.
//
// Configuration files may be TOML, YAML, or JSON; the extension picks the
// decoder. Durations are written as strings ("90s", "2m") in any format.
// The loaded Config converts into the concrete settings of the packages
// it feeds: provider.Config, ledger.Limits, and executor.Policy.
//
//	cfg, err := config.Load("dubkit.toml")
//	if err != nil {
//	    return err
//	}
//	client, err := provider.New(cfg.Provider.Name, cfg.ProviderConfig())
//
// Watch re-loads the file on change and hands the new Config to a
// callback, so long runs can adjust budgets without restarting.
package config
