package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pc-replicate/pc/cmd"
	"github.com/pc-replicate/pc/pkg/configuration"
	"github.com/pc-replicate/pc/pkg/digest"
	"github.com/pc-replicate/pc/pkg/filesystem"
	"github.com/pc-replicate/pc/pkg/logging"
	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/replica"
)

// rootConfiguration holds every flag recognized by the tool, bound directly
// to pflag variables in init below.
var rootConfiguration struct {
	help        bool
	verbose     int
	debug       int
	dryRun      bool
	force       bool
	ignore      bool
	recurse     bool
	preserve    bool
	owner       bool
	times       int
	expunge     bool
	noCopy      bool
	zeroFill    bool
	acls        bool
	attributes  bool
	fileFlags   bool
	archiveFlag bool
	archive     bool
	mirror      bool
	bufferSize  string
	digestName  string
}

// buildConfig translates the parsed flags into a replica.Config, expanding
// the -a/--archive and -M/--mirror group shortcuts and resolving the
// buffer-size and digest value flags.
func buildConfig() (*replica.Config, error) {
	r := &rootConfiguration

	// -a/--archive is equivalent to -rpottAXFU; -M/--mirror is equivalent to
	// -ax. Both only ever add bits on top of whatever was individually
	// requested.
	if r.mirror {
		r.archive = true
		r.expunge = true
	}
	if r.archive {
		r.recurse = true
		r.preserve = true
		r.owner = true
		if r.times < 2 {
			r.times = 2
		}
		r.acls = true
		r.attributes = true
		r.fileFlags = true
		r.archiveFlag = true
	}

	cfg := replica.NewConfig()
	cfg.DryRun = r.dryRun
	cfg.Force = r.force
	cfg.Ignore = r.ignore
	cfg.Recurse = r.recurse
	cfg.Preserve = r.preserve
	cfg.Owner = r.owner
	cfg.Expunge = r.expunge
	cfg.Content = !r.noCopy
	cfg.ZeroFill = r.zeroFill
	cfg.ACLs = r.acls
	cfg.Xattrs = r.attributes
	cfg.FileFlags = r.fileFlags
	cfg.ArchiveBit = r.archiveFlag
	cfg.CallerUID = os.Getuid()
	cfg.CallerGroups, _ = os.Getgroups()

	switch {
	case r.times >= 2:
		cfg.Times = replica.TimesRestore
	case r.times == 1:
		cfg.Times = replica.TimesCompare
	default:
		cfg.Times = replica.TimesOff
	}

	switch {
	case r.verbose >= 3:
		cfg.Verbose = replica.VerbosityDetail
	case r.verbose == 2:
		cfg.Verbose = replica.VerbosityProgress
	case r.verbose == 1:
		cfg.Verbose = replica.VerbosityAction
	default:
		cfg.Verbose = replica.VerbositySilent
	}

	if r.bufferSize != "" {
		var size configuration.ByteSize
		if err := size.UnmarshalText([]byte(r.bufferSize)); err != nil {
			return nil, errors.Wrap(err, "invalid buffer size")
		}
		cfg.BufferSize = int(size)
	}

	if r.digestName != "" {
		algorithm, err := digest.ParseAlgorithm(r.digestName)
		if err != nil {
			return nil, err
		}
		cfg.Digest = algorithm
	}

	level := logging.LevelWarn
	switch {
	case r.debug >= 2:
		level = logging.LevelTrace
	case r.debug == 1:
		level = logging.LevelDebug
	}
	if r.verbose > 0 && level < logging.LevelInfo {
		level = logging.LevelInfo
	}
	logging.SetLevel(level)
	cfg.Logger = logging.RootLogger

	return cfg, nil
}

// normalizePath resolves path to an absolute path, preserving a trailing
// separator (which the directory loader uses to distinguish "copy this
// leaf" from "copy these contents") that filepath.Clean would otherwise
// strip.
func normalizePath(path string) (string, error) {
	trailing := strings.HasSuffix(path, string(os.PathSeparator))
	normalized, err := filesystem.Normalize(path)
	if err != nil {
		return "", err
	}
	if trailing && !strings.HasSuffix(normalized, string(os.PathSeparator)) {
		normalized += string(os.PathSeparator)
	}
	return normalized, nil
}

func rootMain(command *cobra.Command, arguments []string) error {
	if rootConfiguration.help {
		return command.Help()
	}

	if len(arguments) < 2 {
		return errors.New("at least one source and one destination path are required")
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if cfg.ZeroFill && !cfg.Content {
		cmd.Warning("--zero-fill has no effect with --no-copy")
	}

	srcArgs := arguments[:len(arguments)-1]
	dstArg := arguments[len(arguments)-1]

	srcPaths := make([]string, len(srcArgs))
	for i, p := range srcArgs {
		normalized, err := normalizePath(p)
		if err != nil {
			return errors.Wrapf(err, "unable to normalize source path %q", p)
		}
		srcPaths[i] = normalized
	}
	dstPath, err := normalizePath(dstArg)
	if err != nil {
		return errors.Wrapf(err, "unable to normalize destination path %q", dstArg)
	}

	fs := metadata.New()
	driver := replica.NewDriver(fs, cfg)
	rep := newReporter(cfg.Verbose)
	driver.Report = rep.report
	if cfg.Verbose >= replica.VerbosityProgress {
		driver.Progress = rep.progress
	}

	return driver.Run(srcPaths, dstPath)
}

var rootCommand = &cobra.Command{
	Use:   "pc <src-1> [<src-2> …] <dst>",
	Short: "pc replicates metadata and content from one or more source trees onto a destination tree",
	Run:   cmd.Mainify(rootMain),
}

func init() {
	flags := rootCommand.Flags()

	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Print usage and exit")
	flags.CountVarP(&rootConfiguration.verbose, "verbose", "v", "Increase verbosity (may be repeated)")
	flags.CountVarP(&rootConfiguration.debug, "debug", "d", "Increase debug output (may be repeated)")
	flags.BoolVarP(&rootConfiguration.dryRun, "dry-run", "n", false, "Disable all mutations; diff only")
	flags.BoolVarP(&rootConfiguration.force, "force", "f", false, "Treat every compared node as divergent")
	flags.BoolVarP(&rootConfiguration.ignore, "ignore", "i", false, "Continue past per-node errors")
	flags.BoolVarP(&rootConfiguration.recurse, "recurse", "r", false, "Descend into directories")
	flags.BoolVarP(&rootConfiguration.preserve, "preserve", "p", false, "Restore mode bits")
	flags.BoolVarP(&rootConfiguration.owner, "owner", "o", false, "Restore uid/gid")
	flags.CountVarP(&rootConfiguration.times, "times", "t", "Compare mtime (repeat to also restore atime/mtime)")
	flags.BoolVarP(&rootConfiguration.expunge, "expunge", "x", false, "Enable the destination-side removal pass")
	flags.BoolVarP(&rootConfiguration.noCopy, "no-copy", "u", false, "Skip regular-file content replication")
	flags.BoolVarP(&rootConfiguration.zeroFill, "zero-fill", "z", false, "Sparse-hole zero blocks on copy")
	flags.BoolVarP(&rootConfiguration.acls, "acls", "A", false, "Replicate ACLs")
	flags.BoolVarP(&rootConfiguration.attributes, "attributes", "X", false, "Replicate extended attributes")
	flags.BoolVarP(&rootConfiguration.fileFlags, "file-flags", "F", false, "Replicate BSD file flags")
	flags.BoolVarP(&rootConfiguration.archiveFlag, "archive-flag", "U", false, "Handle and clear the source archive bit")
	flags.BoolVarP(&rootConfiguration.archive, "archive", "a", false, "Equivalent to -rpottAXFU")
	flags.BoolVarP(&rootConfiguration.mirror, "mirror", "M", false, "Equivalent to -ax")
	flags.StringVarP(&rootConfiguration.bufferSize, "buffer-size", "B", "", "Copy buffer size (accepts K, M, G, Ki, Mi, Gi suffixes)")
	flags.StringVarP(&rootConfiguration.digestName, "digest", "D", "", fmt.Sprintf("Content digest algorithm (%s)", strings.Join(digest.Names()[1:], "|")))

	rootCommand.Args = cobra.ArbitraryArgs
	rootCommand.SilenceUsage = true
	rootCommand.SilenceErrors = true
}

func main() {
	cmd.HandleTerminalCompatibility()

	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
