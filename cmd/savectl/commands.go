package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dailyyoga/savekit/codec"
	"github.com/dailyyoga/savekit/notify"
	"github.com/dailyyoga/savekit/save"
	"github.com/dailyyoga/savekit/storage"
	flag "github.com/spf13/pflag"
)

func commands() []*command {
	return []*command{
		cmdLs(),
		cmdGet(),
		cmdCreate(),
		cmdSet(),
		cmdSave(),
		cmdRm(),
		cmdRelease(),
	}
}

func oneSlot(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", errUsage
	}
	return args[0], nil
}

func cmdLs() *command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	long := fs.BoolP("long", "l", false, "show type, version and size")

	return &command{
		flags: fs,
		usage: "ls [-l]",
		short: "List the slots of the user",
		exec: func(ctx context.Context, e *env, args []string) error {
			slots, err := e.store.List(ctx, e.user)
			if err != nil {
				return err
			}
			if !*long {
				for _, slot := range slots {
					fmt.Fprintln(e.out, slot)
				}
				return nil
			}

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tTYPE\tVERSION\tSIZE")
			for _, slot := range slots {
				info, err := peek(ctx, e, slot)
				if err != nil {
					fmt.Fprintf(tw, "%s\t?\t?\t?\n", slot)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", slot, info.Type, info.Version, info.Size)
			}
			return tw.Flush()
		},
	}
}

func cmdGet() *command {
	return &command{
		flags: flag.NewFlagSet("get", flag.ContinueOnError),
		usage: "get <slot>",
		short: "Print the record stored in a slot as JSON",
		exec: func(ctx context.Context, e *env, args []string) error {
			slot, err := oneSlot(args)
			if err != nil {
				return err
			}
			blob, err := e.store.Read(ctx, storage.Key{User: e.user, Slot: slot})
			if err != nil {
				return err
			}
			info, err := e.codec.Peek(blob)
			if err != nil {
				return err
			}
			obj, err := e.codec.Decode(blob)
			if err != nil {
				return err
			}

			view := struct {
				Slot string `json:"slot"`
				codec.Info
				Record any `json:"record,omitempty"`
			}{Slot: slot, Info: info}
			if rec, ok := obj.(save.Record); ok {
				view.Record = rec
			}
			return printJSON(e, view)
		},
	}
}

func cmdCreate() *command {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	force := fs.BoolP("force", "f", false, "replace an existing slot")

	return &command{
		flags: fs,
		usage: "create <slot> [-f]",
		short: "Write an empty kv record to a slot",
		exec: func(ctx context.Context, e *env, args []string) error {
			slot, err := oneSlot(args)
			if err != nil {
				return err
			}
			if !*force {
				ok, err := e.store.Exists(ctx, storage.Key{User: e.user, Slot: slot})
				if err != nil {
					return err
				}
				if ok {
					return fmt.Errorf("slot %q already exists, use --force to replace it", slot)
				}
			}
			if e.sub.Create(kvType, slot) == nil {
				return fmt.Errorf("cannot create slot %q", slot)
			}
			return syncSave(ctx, e, kvType, slot)
		},
	}
}

func cmdSet() *command {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	del := fs.StringSliceP("delete", "d", nil, "keys to remove")

	return &command{
		flags: fs,
		usage: "set <slot> [key=value...] [-d key]",
		short: "Set or delete keys of a kv slot, creating it when empty",
		exec: func(ctx context.Context, e *env, args []string) error {
			if len(args) == 0 || (len(args) == 1 && len(*del) == 0) {
				return errUsage
			}
			slot := args[0]

			info, err := peek(ctx, e, slot)
			switch {
			case errors.Is(err, storage.ErrNotFound):
			case err != nil:
				return err
			case info.Type != kvType.Name():
				return fmt.Errorf("slot %q holds a %q record, not %q", slot, info.Type, kvType.Name())
			}

			rec, ok := save.GetAs[*kv](ctx, e.sub, kvType, slot, true)
			if !ok {
				return fmt.Errorf("cannot load slot %q", slot)
			}
			for _, pair := range args[1:] {
				key, value, found := strings.Cut(pair, "=")
				if !found || key == "" {
					return fmt.Errorf("invalid pair %q, want key=value", pair)
				}
				rec.Values[key] = value
			}
			for _, key := range *del {
				delete(rec.Values, key)
			}
			return syncSave(ctx, e, kvType, slot)
		},
	}
}

func cmdSave() *command {
	return &command{
		flags: flag.NewFlagSet("save", flag.ContinueOnError),
		usage: "save <slot>",
		short: "Load a slot and write it back at the latest data version",
		exec: func(ctx context.Context, e *env, args []string) error {
			slot, err := oneSlot(args)
			if err != nil {
				return err
			}
			if ok, err := e.store.Exists(ctx, storage.Key{User: e.user, Slot: slot}); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("slot %q is empty", slot)
			}
			if e.sub.SyncLoad(ctx, nil, slot, false) == nil {
				return fmt.Errorf("slot %q holds no loadable record", slot)
			}
			return syncSave(ctx, e, nil, slot)
		},
	}
}

func cmdRm() *command {
	return &command{
		flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		usage: "rm <slot>",
		short: "Delete a slot",
		exec: func(ctx context.Context, e *env, args []string) error {
			slot, err := oneSlot(args)
			if err != nil {
				return err
			}
			if err := e.store.Delete(ctx, storage.Key{User: e.user, Slot: slot}); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "removed %s\n", slot)
			return nil
		},
	}
}

func cmdRelease() *command {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	subsystem := fs.StringP("subsystem", "s", "", "subsystem holding the slot")
	typeName := fs.StringP("type", "t", "", "record type of the slot")
	reload := fs.BoolP("reload", "r", false, "reload the slot instead of dropping it")
	dry := fs.Bool("dry-run", false, "print the invalidation instead of sending it")

	return &command{
		flags: fs,
		usage: "release <slot> -s <subsystem> [-t type] [-r]",
		short: "Tell running servers to drop or reload a cached slot",
		exec: func(ctx context.Context, e *env, args []string) error {
			slot, err := oneSlot(args)
			if err != nil {
				return err
			}
			if *subsystem == "" {
				return errUsage
			}

			inv := notify.Invalidation{
				Subsystem: *subsystem,
				UserIndex: e.user,
				HasUser:   true,
				Slot:      slot,
				Type:      *typeName,
				Reload:    *reload,
			}
			ncfg := e.settings.Notify
			msg, err := inv.Message(ncfg.InvalidationTopic)
			if err != nil {
				return err
			}
			if *dry {
				fmt.Fprintln(e.out, string(msg.Value))
				return nil
			}
			if ncfg.InvalidationTopic == "" {
				return fmt.Errorf("notify.invalidation_topic is not configured")
			}

			producer, err := notify.NewProducer(e.log, ncfg.Producer, !ncfg.SkipClusterCheck)
			if err != nil {
				return err
			}
			err = producer.Produce(ctx, msg)
			// Close flushes the message
			return errors.Join(err, producer.Close())
		},
	}
}

func peek(ctx context.Context, e *env, slot string) (codec.Info, error) {
	blob, err := e.store.Read(ctx, storage.Key{User: e.user, Slot: slot})
	if err != nil {
		return codec.Info{}, err
	}
	return e.codec.Peek(blob)
}

func syncSave(ctx context.Context, e *env, t save.Type, slot string) error {
	if !e.sub.SyncSave(ctx, t, slot) {
		return fmt.Errorf("saving slot %q failed", slot)
	}
	h := save.HeaderOf(e.sub.Active(slot))
	fmt.Fprintf(e.out, "saved %s (version %d)\n", slot, h.SavedDataVersion())
	return nil
}

func printJSON(e *env, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, string(data))
	return nil
}
