package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"selenex/internal/dom"
	"selenex/internal/export"
	"selenex/internal/fingerprint"
	"selenex/internal/selector"
)

var (
	locateSession string
	locatePage    string
	locateURL     string
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Relocate recorded elements in a saved HTML page",
	Long: `locate reads a session.json and an HTML snapshot of the page as it is now, and
reports for every recorded element the locator that still finds it, together with
how closely the page matches the one the action was recorded on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocate(cmd.OutOrStdout(), locateSession, locatePage, locateURL, captureOptions(cfg).Fingerprint)
	},
}

func init() {
	locateCmd.Flags().StringVarP(&locateSession, "session", "s", export.FileName, "Recorded session file")
	locateCmd.Flags().StringVarP(&locatePage, "page", "p", "", "HTML snapshot of the current page")
	locateCmd.Flags().StringVar(&locateURL, "url", "", "URL the snapshot was taken from (defaults to each action's URL)")
	_ = locateCmd.MarkFlagRequired("page")
}

func runLocate(w io.Writer, sessionPath, pagePath, url string, opts fingerprint.Options) error {
	actions, err := export.Load(sessionPath)
	if err != nil {
		return err
	}

	f, err := os.Open(pagePath)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer f.Close()
	doc, err := dom.Parse(f)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tACTION\tTAG\tLOCATOR\tMATCH\tSAME PAGE\tOVERLAP")
	for i, action := range actions {
		pageURL := url
		if pageURL == "" {
			pageURL = action.Fingerprint.URL
		}
		current := fingerprint.CaptureStructuralFingerprint(fingerprint.NewPage(doc, pageURL), opts)
		sim := fingerprint.Compare(action.Fingerprint, current)

		if action.ElementContext == nil {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t%t\t%.2f\n", i, action.Action, sim.SamePage(), sim.LandmarkOverlap)
			continue
		}

		match := "found"
		_, loc, relocErr := selector.Relocate(doc, action.ElementContext)
		if relocErr != nil {
			match = "missing"
			if best, ok := selector.Best(action.ElementContext); ok {
				loc = best
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%.2f\n",
			i, action.Action, action.ElementContext.Tag, loc, match, sim.SamePage(), sim.LandmarkOverlap)
	}
	return tw.Flush()
}
