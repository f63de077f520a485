// radixlookup loads a prefix table and answers routing-style lookups from
// the command line:
//
//	radixlookup --table routes.txt 10.1.2.3 192.168.1.77
//	radixlookup --table routes.txt --dump
//
// The table file holds one prefix per line, optionally followed by an
// arbitrary value; '#' starts a comment.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	radix "github.com/aglyzov/go-radix"
)

const envPrefix = "RADIXLOOKUP"

var (
	buildVersion = "unknown"

	cfgFile   string
	logLevel  string
	tableFile string
	exact     bool
	dump      bool

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var rootCmd = &cobra.Command{
	Use:     "radixlookup [addresses...]",
	Short:   "Longest-prefix match lookups over a prefix table",
	Version: buildVersion,
	RunE: func(_ *cobra.Command, args []string) error {
		return run(args)
	},
}

// entry is the JSON shape of one stored prefix.
type entry struct {
	Prefix    string `json:"prefix"`
	Network   string `json:"network"`
	PrefixLen int    `json:"prefixlen"`
	Family    string `json:"family"`
	Value     string `json:"value,omitempty"`
}

// result is the JSON shape of one lookup answer.
type result struct {
	Query string `json:"query"`
	Match *entry `json:"match"`
}

func newEntry(n *radix.Node) *entry {
	e := &entry{
		Prefix:    n.String(),
		Network:   n.Network(),
		PrefixLen: n.Bitlen(),
		Family:    n.Family().String(),
	}
	if v, ok := n.Data.(string); ok {
		e.Value = v
	}
	return e
}

// initConfig uses a config file and ENV variables if set.
func initConfig() {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(".radixlookup")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfgErr := v.ReadInConfig()

	bindFlags(rootCmd, v)
	initLogger()

	if cfgErr != nil && cfgFile != "" {
		log.Errorf("Read config error: %v", cfgErr)
	}
}

func initLogger() {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.ErrorLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, PadLevelText: true})
}

// bindFlags applies viper config values to flags the user did not set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func initFlags() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.radixlookup)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&tableFile, "table", "", "prefix table file, one 'prefix [value]' per line")
	rootCmd.PersistentFlags().BoolVar(&exact, "exact", false, "use exact match instead of longest-prefix match")
	rootCmd.PersistentFlags().BoolVar(&dump, "dump", false, "print every stored prefix instead of looking up")
}

func loadTable(path string) (*radix.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree := radix.New()
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p, err := radix.ParsePrefix(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
		node, err := tree.Add(p)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
		if len(fields) > 1 {
			node.Data = strings.Join(fields[1:], " ")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"file":     path,
		"prefixes": tree.Len(),
		"family":   tree.Family().String(),
	}).Info("prefix table loaded")

	return tree, nil
}

func run(args []string) error {
	if tableFile == "" {
		return fmt.Errorf("--table is required")
	}
	tree, err := loadTable(tableFile)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	if dump {
		nodes, err := tree.Nodes()
		if err != nil {
			return err
		}
		entries := make([]*entry, 0, len(nodes))
		for _, n := range nodes {
			entries = append(entries, newEntry(n))
		}
		return out.Encode(entries)
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to look up: pass addresses or use --dump")
	}

	results := make([]*result, 0, len(args))
	for _, arg := range args {
		p, err := radix.ParsePrefix(arg)
		if err != nil {
			return err
		}
		var n *radix.Node
		if exact {
			n = tree.SearchExact(p)
		} else {
			n = tree.SearchBest(p)
		}
		res := &result{Query: arg}
		if n != nil {
			res.Match = newEntry(n)
		} else {
			log.WithField("query", arg).Debug("no matching prefix")
		}
		results = append(results, res)
	}
	return out.Encode(results)
}

func main() {
	initFlags()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
