package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kingpin"
	"github.com/go-logr/logr"

	"github.com/chezmoi-sh/kubevault/cmd"
	"github.com/chezmoi-sh/kubevault/pkg/acl"
	"github.com/chezmoi-sh/kubevault/pkg/aclrules"
	"github.com/chezmoi-sh/kubevault/pkg/compiler"
	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/manifest"
	"github.com/chezmoi-sh/kubevault/pkg/signals"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

var (
	app = kingpin.New("kubevault", "Compile a kvstore vault tree and per-user ACLs into Kubernetes manifests").Version(cmd.VersionStanza())

	commonOpts = cmd.NewCommonOptions(app)

	generate          = app.Command("generate", "Compile the vault tree into Kubernetes manifests")
	generateVaultDir  = generate.Flag("vault-dir", "Path to the vault directory").Envar("KUBEVAULT_DIR").Default(".").String()
	generateNamespace = generate.Flag("namespace", "Kubernetes namespace for emitted manifests").Default(manifest.DefaultNamespace).String()
	generateOutputDir = generate.Flag("output-dir", "Write one manifest file per object into this directory, instead of stdout").String()

	canRead              = app.Command("can-read", "Report which secrets a user is authorized to read")
	canReadUser          = canRead.Arg("user", "Username to check").Required().String()
	canReadPath          = canRead.Arg("path", "Single path to check, instead of listing the whole allowed set").String()
	canReadVaultDir      = canRead.Flag("vault-dir", "Path to the vault directory").Envar("KUBEVAULT_DIR").Default(".").String()
	canReadShowOnlyAllow = canRead.Flag("show-only-allowed", "Omit denied/unmatched entries from the listing").Bool()
	canReadShowDenied    = canRead.Flag("show-denied", "Also show the rule that decided each path's status").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	logger := commonOpts.Logger()

	ctx, cancel := signals.SetupSignalHandler()
	defer cancel()

	var err error
	switch command {
	case generate.FullCommand():
		err = runGenerate(ctx, logger)
	case canRead.FullCommand():
		err = runCanRead(ctx, logger)
	default:
		panic("unrecognised command: " + command)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(vaulterrors.ExitCode(err))
	}
}

func runGenerate(ctx context.Context, logger logr.Logger) error {
	vault, err := compiler.Load(ctx, *generateVaultDir, logger)
	if err != nil {
		return err
	}

	secrets, bundles, err := vault.Generate(ctx, *generateNamespace)
	if err != nil {
		return err
	}

	if *generateOutputDir != "" {
		logger.Info("writing manifests", "event", "manifests.write", "output_dir", *generateOutputDir,
			"secrets", len(secrets), "users", len(bundles))
		return manifest.WriteDir(*generateOutputDir, secrets, bundles)
	}

	stream, err := manifest.RenderStream(secrets, bundles)
	if err != nil {
		return err
	}

	if _, err := os.Stdout.Write(stream); err != nil {
		return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, "", "failed to write manifest stream to stdout")
	}

	return nil
}

func runCanRead(ctx context.Context, logger logr.Logger) error {
	vault, err := compiler.Load(ctx, *canReadVaultDir, logger)
	if err != nil {
		return err
	}

	user, err := vault.User(*canReadUser)
	if err != nil {
		return err
	}

	if *canReadPath != "" {
		return printSinglePath(vault, user, kvstore.NewPath(*canReadPath))
	}

	decisions, err := vault.Evaluate(user)
	if err != nil {
		return err
	}

	printAllowedSet(vault, decisions, *canReadShowOnlyAllow, *canReadShowDenied)

	return nil
}

// printSinglePath evaluates the user's rules against exactly one path,
// which need not be a path present in the catalog.
func printSinglePath(vault *compiler.Vault, user *aclrules.UserRules, target kvstore.Path) error {
	decision, err := vault.EvaluateOne(user, target)
	if err != nil {
		return err
	}

	ruleText := "(default deny)"
	if decision.Winner != nil {
		ruleText = decision.Winner.Raw
	}

	fmt.Printf("%s: %s\n", decision.Verdict, ruleText)

	return nil
}

// printAllowedSet lists every catalog path in sorted order alongside its
// mangled name. By default every decision is shown; --show-only-
// allowed drops everything but the allowed set; --show-denied additionally
// prints the rule that decided each line.
func printAllowedSet(vault *compiler.Vault, decisions []acl.Decision, showOnlyAllowed, showDenied bool) {
	sorted := append([]acl.Decision{}, decisions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path.String() < sorted[j].Path.String() })

	for _, d := range sorted {
		if showOnlyAllowed && d.Verdict != acl.Allowed {
			continue
		}

		name, _ := vault.NameForPath(d.Path)

		if showDenied {
			ruleText := "(default deny)"
			if d.Winner != nil {
				ruleText = d.Winner.Raw
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", d.Path, name, d.Verdict, ruleText)
			continue
		}

		fmt.Printf("%s\t%s\t%s\n", d.Path, name, d.Verdict)
	}
}
