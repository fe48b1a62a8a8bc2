package cmd

import (
	"flag"

	"github.com/etnz/fundtrack"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var providerNames = predict.Set{"yahoo", "investing", "jpmorgan", "eodhd", "file"}

// flagPredictors predicts flag values, by "command.flag" or by flag name for
// every command.
var flagPredictors = map[string]complete.Predictor{
	"fill":       predict.Set{"forward", "backward", "none"},
	"o":          predict.Files("*"),
	"provider":   providerNames,
	"search.p":   predict.Set{"eodhd", "investing"},
	"buy.f":      complete.PredictFunc(predictFundCodes),
	"holdings.c": predict.Set{"EUR", "USD", "GBP", "CHF", "JPY"},
	"config":     predict.Files("*.yaml"),
	"csv":        predict.Nothing,
}

// predictFundCodes predicts the codes of the configured registry.
func predictFundCodes(string) []string {
	cfg, err := loadConfig()
	if err != nil {
		return nil
	}
	reg, err := fundtrack.LoadRegistry(cfg.Registry)
	if err != nil {
		return nil
	}
	return reg.Codes()
}

// Completion returns the shell completion of the ftk commands, built from
// the flags of each command.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: map[string]complete.Predictor{"config": flagPredictors["config"]},
	}
	for _, g := range groups() {
		for _, c := range g.cmds {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			sub := &complete.Command{Flags: make(map[string]complete.Predictor)}
			fs.VisitAll(func(f *flag.Flag) {
				sub.Flags[f.Name] = predictFlag(c.Name(), f.Name)
			})
			root.Sub[c.Name()] = sub
		}
	}
	root.Sub["merge"].Args = predict.Files("*.csv")
	return root
}

func predictFlag(cmd, name string) complete.Predictor {
	if p, ok := flagPredictors[cmd+"."+name]; ok {
		return p
	}
	if p, ok := flagPredictors[name]; ok {
		return p
	}
	return predict.Something
}
