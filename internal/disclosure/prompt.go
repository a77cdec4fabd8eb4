package disclosure

// Prompt is the upgrade offer shown whenever a locked element or the unlock
// control is activated. It is static and carries no transaction.
type Prompt struct {
	Action       string        `json:"action"`
	Title        string        `json:"title"`
	Plans        []Plan        `json:"plans"`
	Features     []FeatureSet  `json:"features"`
	Testimonials []Testimonial `json:"testimonials"`
}

type Plan struct {
	Tier       Tier     `json:"tier"`
	Name       string   `json:"name"`
	Price      string   `json:"price"`
	Period     string   `json:"period,omitempty"`
	Current    bool     `json:"current"`
	Highlights []string `json:"highlights"`
}

type FeatureSet struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type Testimonial struct {
	Result string `json:"result"`
	Quote  string `json:"quote"`
	Role   string `json:"role"`
}

// UpgradePrompt returns the prompt. Repeated calls return equal values.
func UpgradePrompt() Prompt {
	return Prompt{
		Action: ActionUpgrade,
		Title:  "Ready for Mission Control?",
		Plans: []Plan{
			{
				Tier:    TierExplorer,
				Name:    "Explorer Access",
				Price:   "FREE",
				Current: true,
				Highlights: []string{
					"Basic market positioning",
					"Limited opportunity preview",
					"General risk overview",
					"Surface-level insights",
				},
			},
			{
				Tier:   TierCommander,
				Name:   "Commander Access",
				Price:  "$99",
				Period: "year",
				Highlights: []string{
					"Complete market analysis",
					"Detailed negotiation scripts",
					"Risk mitigation strategies",
				},
			},
		},
		Features: []FeatureSet{
			{Category: "Intelligence Analysis", Items: []string{
				"Complete market positioning data",
				"Detailed salary benchmarking",
				"Industry-specific comparisons",
				"Historical trend analysis",
			}},
			{Category: "Negotiation Arsenal", Items: []string{
				"Customized negotiation scripts",
				"Counter-offer strategies",
				"Email templates & responses",
				"Timing recommendations",
			}},
			{Category: "Risk Management", Items: []string{
				"Company stability analysis",
				"Market risk assessment",
				"Negotiation success probability",
				"Backup strategy planning",
			}},
			{Category: "Mission Support", Items: []string{
				"24/7 AI coaching assistance",
				"Practice negotiation scenarios",
				"Real-time strategy updates",
				"Success tracking & analytics",
			}},
		},
		Testimonials: []Testimonial{
			{
				Result: "+$28,000 salary increase",
				Quote:  "The detailed market analysis gave me confidence to negotiate. Worth every penny!",
				Role:   "Software Engineer",
			},
			{
				Result: "+$15,000 + equity boost",
				Quote:  "The negotiation scripts were perfect. I got exactly what I asked for.",
				Role:   "Product Manager",
			},
			{
				Result: "+$22,000 + remote work",
				Quote:  "Commander access paid for itself 220x over. Incredible ROI.",
				Role:   "Data Scientist",
			},
		},
	}
}
