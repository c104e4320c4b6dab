package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/dustin/go-humanize"

	"github.com/pc-replicate/pc/cmd"
	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/replica"
)

// reporter owns the one status line this tool ever prints to, so that a
// live byte-copy progress line is always broken before the next action's
// sigil line prints. Splitting these across two uncoordinated printers
// would let a stale progress line linger under the next action.
type reporter struct {
	verbose replica.Verbosity
	line    cmd.StatusLinePrinter
}

func newReporter(verbose replica.Verbosity) *reporter {
	return &reporter{verbose: verbose}
}

func (r *reporter) progress(path string, total int64) {
	if r.verbose < replica.VerbosityProgress {
		return
	}
	r.line.Print(fmt.Sprintf("  %s: %s copied", path, humanize.Bytes(uint64(total))))
}

func (r *reporter) report(action replica.Action) {
	if r.verbose < replica.VerbosityAction {
		return
	}
	r.line.BreakIfNonEmpty()

	suffix := ""
	if action.Node.IsDir() {
		suffix = "/"
	}

	paint := sigilColor(action.Sigil)
	fmt.Fprintf(os.Stdout, "%s %s %s\n",
		paint("%c", action.Sigil),
		action.Path+suffix,
		descriptor(action.Node),
	)

	if r.verbose >= replica.VerbosityDetail {
		printDetail(action.Node)
	}
}

// sigilColor renders the console sigil so that creations read green,
// removals read red, and divergence/replacement reads yellow, matching the
// fatih/color conventions already used for warnings and errors elsewhere in
// this tree.
func sigilColor(sigil replica.Sigil) func(string, ...interface{}) string {
	switch sigil {
	case replica.SigilCreated:
		return color.GreenString
	case replica.SigilRemoved:
		return color.RedString
	case replica.SigilDivergent, replica.SigilReplaced:
		return color.YellowString
	default:
		return fmt.Sprintf
	}
}

// bsdFlagNames is a best-effort name table for the BSD chflags bits this
// tool recognizes. Unnamed bits print as a hex residue rather than being
// dropped silently, so a descriptor never silently underreports flags.
var bsdFlagNames = []struct {
	bit  uint32
	name string
}{
	{0x00000001, "nodump"},
	{0x00000002, "uimmutable"},
	{0x00000004, "uappend"},
	{0x00000008, "opaque"},
	{0x00000020, "archived"},
	{0x00020000, "uunlink"},
	{0x00100000, "simmutable"},
	{0x00200000, "sappend"},
	{0x00800000, "snounlink"},
}

func formatFlags(flags uint32) string {
	var names []string
	for _, f := range bsdFlagNames {
		if flags&f.bit != 0 {
			names = append(names, f.name)
			flags &^= f.bit
		}
	}
	if flags != 0 {
		names = append(names, fmt.Sprintf("0x%x", flags))
	}
	result := ""
	for i, n := range names {
		if i > 0 {
			result += ","
		}
		result += n
	}
	return result
}

// descriptor renders a node's console descriptor: the type letter, the
// ACL/xattr presence letters (N A D U S), and any BSD flag names in braces.
func descriptor(node *replica.Node) string {
	var letters string
	if node.ACLs[metadata.AclNFS4] != nil {
		letters += "N"
	}
	if node.ACLs[metadata.AclAccess] != nil {
		letters += "A"
	}
	if node.ACLs[metadata.AclDefault] != nil {
		letters += "D"
	}
	if m := node.Xattrs[metadata.NamespaceUser]; m != nil && m.Len() > 0 {
		letters += "U"
	}
	if m := node.Xattrs[metadata.NamespaceSystem]; m != nil && m.Len() > 0 {
		letters += "S"
	}

	desc := fmt.Sprintf("%c%s", node.TypeLetter(), letters)
	if node.Stat != nil && node.Stat.HasFlags && node.Stat.Flags != 0 {
		desc += fmt.Sprintf(" {%s}", formatFlags(node.Stat.Flags))
	}
	return desc
}

func printDetail(node *replica.Node) {
	if node == nil || node.Stat == nil {
		return
	}
	fmt.Printf("    size=%d uid=%d gid=%d mtime=%s\n",
		node.Stat.Size, node.Stat.UID, node.Stat.GID, node.Stat.Mtime.Format("2006-01-02T15:04:05"))

	for _, kind := range []metadata.AclKind{metadata.AclNFS4, metadata.AclAccess, metadata.AclDefault} {
		if acl := node.ACLs[kind]; acl != nil {
			fmt.Printf("    %s acl: %s\n", kind, acl.Text())
		}
	}

	for _, ns := range []metadata.Namespace{metadata.NamespaceUser, metadata.NamespaceSystem} {
		m := node.Xattrs[ns]
		if m == nil || m.Len() == 0 {
			continue
		}
		names := m.Keys()
		sort.Strings(names)
		fmt.Printf("    %s attributes: %v\n", ns, names)
	}

	if node.DigestAlgorithm != 0 {
		fmt.Printf("    %s digest: %x\n", node.DigestAlgorithm, node.Digest)
	}
}
