package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kittynode/kittynode/internal/model"
)

// deleteFlags holds the command-specific flags for the delete subcommand.
type deleteFlags struct {
	// includeImages also removes the images the containers were created from.
	includeImages bool

	// force skips the interactive confirmation prompt.
	force bool
}

// NewDeleteCommand creates the "delete" subcommand.
//
// Delete removes a package's containers, optionally its images, the host
// files and directories its containers bound, its volumes and finally its
// network. Paths already gone are skipped.
func NewDeleteCommand() *cobra.Command {
	flags := &deleteFlags{}

	cmd := &cobra.Command{
		Use:   "delete <package>",
		Short: "Delete a package and its data",
		Long: `Delete a package: remove its containers, bound host paths, volumes and network.

Bound host paths include the shared JWT secret, so deleting one package
removes it for any other package using it. Images are kept unless
--include-images is given.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePackageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.includeImages, "include-images", false, "Also remove the package's images")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Delete without confirmation")

	return cmd
}

func runDelete(cmd *cobra.Command, name string, flags *deleteFlags) error {
	ctx := cmd.Context()

	m, release, err := sessionManager(ctx, true)
	if err != nil {
		return err
	}
	defer release()

	pkg, err := m.Resolve(name)
	if err != nil {
		return err
	}

	// JSON mode is non-interactive, so it behaves as if --force was given.
	if !flags.force && !IsJSONOutput() {
		confirmed, err := promptConfirmation(cmd.InOrStdin(), cmd.OutOrStdout(), pkg, flags.includeImages)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	if err := m.Delete(ctx, name, flags.includeImages); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), actionResultJSON{
			Package:       name,
			Action:        "deleted",
			Network:       pkg.NetworkName,
			Containers:    pkg.ContainerNames(),
			ImagesRemoved: flags.includeImages,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted package %q.\n", name)
	return nil
}

// promptConfirmation asks the user to confirm the delete operation.
// Returns true if the user confirmed, false otherwise.
func promptConfirmation(in io.Reader, out io.Writer, pkg model.Package, includeImages bool) (bool, error) {
	fmt.Fprintf(out, "About to delete package %q:\n", pkg.Name)
	fmt.Fprintf(out, "  - %d container(s) will be removed: %s\n",
		len(pkg.Containers), strings.Join(pkg.ContainerNames(), ", "))
	if includeImages {
		fmt.Fprintln(out, "  - their images will be removed")
	}
	fmt.Fprintln(out, "  - bound host files, directories and volumes will be removed")
	fmt.Fprintf(out, "  - network %s will be removed\n", pkg.NetworkName)
	fmt.Fprint(out, "\nContinue? [y/N] ")
	return readConfirmation(in)
}

// readConfirmation reads a single line from in and reports whether it is
// "y" or "yes", in any case.
func readConfirmation(in io.Reader) (bool, error) {
	// bufio.Scanner handles both LF and CRLF line endings.
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}

	// EOF without input is treated as "no".
	return false, nil
}
