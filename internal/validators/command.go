package validators

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Field name constants restrict validation to a subset of a command's
// fields.
const (
	// FieldPath targets the filesystem path of a watch, unwatch or sync, and
	// the changed paths of a notify.
	FieldPath = "path"

	// FieldPatterns targets the include and exclude globs of a watch.
	FieldPatterns = "patterns"

	// FieldDestination targets the destination of a watch or sync.
	FieldDestination = "destination"

	// FieldTarget targets the session selector of a ping, exec or sync.
	FieldTarget = "target"

	// FieldCommand targets the program name of an exec.
	FieldCommand = "command"

	// FieldEnv targets the extra environment of an exec.
	FieldEnv = "env"

	// FieldScope targets the scope of a shutdown.
	FieldScope = "scope"
)

// CommandValidator implements Validator for the administrative commands
// that carry operator input. Commands without fields pass unchecked.
type CommandValidator struct{}

func NewCommandValidator() Validator {
	return &CommandValidator{}
}

func (v *CommandValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case protocol.WatchDirectoryCommand:
		return v.validateWatch(value, fields...)
	case *protocol.WatchDirectoryCommand:
		return v.validateWatch(*value, fields...)

	case protocol.UnwatchDirectoryCommand:
		return v.validateUnwatch(value, fields...)
	case *protocol.UnwatchDirectoryCommand:
		return v.validateUnwatch(*value, fields...)

	case protocol.SyncFileCommand:
		return v.validateSync(value, fields...)
	case *protocol.SyncFileCommand:
		return v.validateSync(*value, fields...)

	case protocol.NotifyChangeCommand:
		return v.validateNotify(value, fields...)
	case *protocol.NotifyChangeCommand:
		return v.validateNotify(*value, fields...)

	case protocol.ExecuteCommand:
		return v.validateExecute(value, fields...)
	case *protocol.ExecuteCommand:
		return v.validateExecute(*value, fields...)

	case protocol.PingCommand:
		return v.validatePing(value, fields...)
	case *protocol.PingCommand:
		return v.validatePing(*value, fields...)

	case protocol.ShutdownCommand:
		return v.validateShutdown(value, fields...)
	case *protocol.ShutdownCommand:
		return v.validateShutdown(*value, fields...)

	case protocol.StatusCommand, protocol.ListClientsCommand, protocol.ListWatchesCommand:
		return nil

	default:
		return ErrUnsupportedType
	}
}

func (v *CommandValidator) validateWatch(cmd protocol.WatchDirectoryCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPath, FieldPatterns, FieldDestination}
	}

	for _, f := range fields {
		switch f {
		case FieldPath:
			if err := checkWatchPath(cmd.Path); err != nil {
				return err
			}
		case FieldPatterns:
			if err := checkPatterns(cmd.Include); err != nil {
				return fmt.Errorf("include: %w", err)
			}
			if err := checkPatterns(cmd.Exclude); err != nil {
				return fmt.Errorf("exclude: %w", err)
			}
		case FieldDestination:
			if cmd.Destination != "" && !localSlashPath(cmd.Destination) {
				return ErrBadDestination
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validateUnwatch(cmd protocol.UnwatchDirectoryCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPath}
	}

	for _, f := range fields {
		switch f {
		case FieldPath:
			if err := checkWatchPath(cmd.Path); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validateSync(cmd protocol.SyncFileCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPath, FieldDestination, FieldTarget}
	}

	inline := cmd.Inline || cmd.Data != nil
	for _, f := range fields {
		switch f {
		case FieldPath:
			if cmd.Path == "" && !inline {
				return ErrEmptyPath
			}
		case FieldDestination:
			if cmd.Destination == "" && inline {
				return ErrEmptyDestination
			}
		case FieldTarget:
			if err := checkSelector(cmd.Targets); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validateNotify(cmd protocol.NotifyChangeCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPath}
	}

	for _, f := range fields {
		switch f {
		case FieldPath:
			if len(cmd.Paths) == 0 {
				return ErrEmptyPath
			}
			for _, p := range cmd.Paths {
				if err := checkWatchPath(p); err != nil {
					return err
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validateExecute(cmd protocol.ExecuteCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldCommand, FieldTarget, FieldEnv}
	}

	for _, f := range fields {
		switch f {
		case FieldCommand:
			if strings.TrimSpace(cmd.Command) == "" {
				return ErrEmptyCommand
			}
		case FieldTarget:
			if strings.TrimSpace(cmd.Target) == "" {
				return ErrEmptyTarget
			}
			if err := checkSelector(cmd.Target); err != nil {
				return err
			}
		case FieldEnv:
			for name := range cmd.Env {
				if name == "" || strings.ContainsRune(name, '=') {
					return fmt.Errorf("%w: %q", ErrInvalidEnv, name)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validatePing(cmd protocol.PingCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldTarget}
	}

	for _, f := range fields {
		switch f {
		case FieldTarget:
			if err := checkSelector(cmd.Target); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *CommandValidator) validateShutdown(cmd protocol.ShutdownCommand, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldScope}
	}

	for _, f := range fields {
		switch f {
		case FieldScope:
			switch cmd.Scope {
			case "", "server", "clients":
			default:
				if _, err := path.Match(cmd.Scope, ""); err != nil {
					return fmt.Errorf("%w: %q", ErrInvalidScope, cmd.Scope)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func checkWatchPath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if !filepath.IsAbs(p) {
		return fmt.Errorf("%w: %q", ErrRelativePath, p)
	}
	return nil
}

func checkPatterns(patterns []string) error {
	for _, p := range patterns {
		if p == "" {
			return fmt.Errorf("%w: empty pattern", ErrBadPattern)
		}
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
	}
	return nil
}

// checkSelector validates the glob form of a selector; lists and plain
// names always pass.
func checkSelector(s string) error {
	if strings.Contains(s, ",") || !strings.ContainsAny(s, `*?[\`) {
		return nil
	}
	return checkPatterns([]string{s})
}

func localSlashPath(p string) bool {
	return filepath.IsLocal(filepath.FromSlash(p))
}
