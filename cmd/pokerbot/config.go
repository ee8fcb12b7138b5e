package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/poker"
)

type Config struct {
	server  string
	room    string
	name    string
	profile string

	vote       string
	autoVote   bool
	autoReveal bool
	resetAfter time.Duration
	poll       time.Duration

	jql          string
	importIssues int
	jiraDomain   string
	jiraEmail    string
	jiraToken    string

	verbose bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url: %q", c.server)
	}
	if c.vote != "" && !poker.IsCard(c.vote) {
		return fmt.Errorf("invalid vote %q (deck: %s)", c.vote, strings.Join(poker.Deck, ","))
	}
	if c.poll <= 0 {
		return errors.New("--poll must be positive")
	}
	if c.importIssues < 0 {
		return errors.New("--import-issues must not be negative")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("POKERBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pokerbot",
		Short:         "A headless planning poker participant.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "channel service base url (env: POKERBOT_SERVER)")
	fs.StringVarP(&cfg.room, "room", "r", "", "room code to join, a new room is created when empty (env: POKERBOT_ROOM)")
	fs.StringVarP(&cfg.name, "name", "n", "", "display name, stored in the profile (env: POKERBOT_NAME)")
	fs.StringVar(&cfg.profile, "profile", "pokerbot.db", "path to the local profile database (env: POKERBOT_PROFILE)")
	fs.StringVar(&cfg.vote, "vote", "", "card to vote with, random when empty (env: POKERBOT_VOTE)")
	fs.BoolVar(&cfg.autoVote, "auto-vote", true, "vote as soon as a round starts (env: POKERBOT_AUTO_VOTE)")
	fs.BoolVar(&cfg.autoReveal, "auto-reveal", false, "reveal once everyone voted, when this bot is the creator (env: POKERBOT_AUTO_REVEAL)")
	fs.DurationVar(&cfg.resetAfter, "reset-after", 0, "start a new round this long after a reveal, 0 disables (env: POKERBOT_RESET_AFTER)")
	fs.DurationVar(&cfg.poll, "poll", 500*time.Millisecond, "how often the room state is inspected (env: POKERBOT_POLL)")
	fs.StringVar(&cfg.jql, "jql", "", "tracker query used to import issues (env: POKERBOT_JQL)")
	fs.IntVar(&cfg.importIssues, "import-issues", 0, "number of tracker issues to add as tickets after joining (env: POKERBOT_IMPORT_ISSUES)")
	fs.StringVar(&cfg.jiraDomain, "jira-domain", "", "Jira domain, stored in the profile (env: POKERBOT_JIRA_DOMAIN)")
	fs.StringVar(&cfg.jiraEmail, "jira-email", "", "Jira account email, stored in the profile (env: POKERBOT_JIRA_EMAIL)")
	fs.StringVar(&cfg.jiraToken, "jira-token", "", "Jira API token, stored in the profile (env: POKERBOT_JIRA_TOKEN)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: POKERBOT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pokerbot v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
