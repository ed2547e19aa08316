// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - the "inkwell config" command.
//
// Subcommands:
//
//	show (default)      Display the effective configuration (secrets redacted)
//	path                Show the config file location
//	init [--force]      Write the defaults to the config file
//	get KEY             Print one value, e.g. stream.checkpoint
//	set KEY VALUE       Change one value and save
//	keys                List every key
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jeranaias/inkwell/internal/config"
)

// HandleConfig shows and edits the configuration file.
func HandleConfig(env *Env) error {
	p := NewArgParser(env.Args.Raw, "force")

	switch sub := strings.ToLower(p.Positional(0)); sub {
	case "", "show":
		return configShow(env)

	case "path":
		if env.Args.JSON {
			return env.WriteJSON("config", map[string]string{"path": env.ConfigPath})
		}
		fmt.Fprintln(env.Term.Out, env.ConfigPath)
		return nil

	case "init":
		return configInit(env, p.Bool("force"))

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("KEY", "inkwell config get stream.checkpoint")
		}
		v, err := env.Config.Redacted().Get(key)
		if err != nil {
			return NewValidationErrorWithExample("key", key, err.Error(), "inkwell config keys")
		}
		if env.Args.JSON {
			return env.WriteJSON("config", map[string]any{"key": key, "value": v})
		}
		fmt.Fprintln(env.Term.Out, v)
		return nil

	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("KEY VALUE", "inkwell config set stream.checkpoint lenient")
		}
		return configSet(env, key, value)

	case "keys":
		keys := config.Keys()
		if env.Args.JSON {
			return env.WriteJSON("config", keys)
		}
		for _, k := range keys {
			fmt.Fprintln(env.Term.Out, k)
		}
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", sub, "unknown config subcommand", "inkwell config show|path|init|get|set|keys")
	}
}

func configShow(env *Env) error {
	if env.Args.JSON {
		return env.WriteJSON("config", env.Config.Redacted())
	}
	out := env.Term.Out
	fmt.Fprintln(out, TitleStyle.Render("inkwell configuration"))
	fmt.Fprintln(out, RenderField("File", env.ConfigPath))
	if _, err := os.Stat(env.ConfigPath); err != nil {
		fmt.Fprintln(out, DimStyle.Render("(file not found, showing defaults)"))
	}
	fmt.Fprintln(out, RenderSeparator())
	fmt.Fprint(out, env.Config.String())
	return nil
}

func configInit(env *Env, force bool) error {
	path := env.ConfigPath
	if path == "" {
		return fmt.Errorf("%w: no config path", ErrConfig)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewValidationErrorWithExample("config", path, "file already exists", "inkwell config init --force")
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := config.SaveFile(config.Default(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	env.Logger.Printf("CONFIG_INIT | path=%s", path)
	if env.Args.JSON {
		return env.WriteJSON("config", map[string]string{"path": path})
	}
	env.Printf("%s\n", SuccessStyle.Render("Wrote "+path))
	return nil
}

// configSet applies one change on top of the file contents, not the
// environment overrides, and saves it.
func configSet(env *Env, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(env.ConfigPath); err == nil {
		loaded, err := config.DecodeFile(env.ConfigPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		cfg = loaded
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "inkwell config keys")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := config.SaveFile(cfg, env.ConfigPath); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	env.Logger.Printf("CONFIG_SET | key=%s", key)
	if env.Args.JSON {
		v, _ := cfg.Redacted().Get(key)
		return env.WriteJSON("config", map[string]any{"key": key, "value": v})
	}
	env.Printf("%s\n", SuccessStyle.Render(fmt.Sprintf("Set %s in %s", key, env.ConfigPath)))
	return nil
}
