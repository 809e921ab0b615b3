package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type SolverParameters struct {
	Title        string `yaml:"Title"`
	Verbosity    int    `yaml:"Verbosity"`
	Tune         bool   `yaml:"Tune"`
	TuneMeasures int    `yaml:"TuneMeasures"`
	// First key is the linear-system name, second is the option key
	// (solver, precond, rtol, max_iter, ...)
	Systems map[string]map[string]string `yaml:"Systems"`
}

func (ip *SolverParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *SolverParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t= Verbosity\n", ip.Verbosity)
	fmt.Printf("[%v]\t\t\t= Tune\n", ip.Tune)
	keys := make([]string, len(ip.Systems))
	i := 0
	for k := range ip.Systems {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Systems[%s] = %v\n", key, ip.Systems[key])
	}
}
