// Package indicators is the third pipeline layer: it aggregates enriched
// articles into the national indicator catalog, rolls categories up into
// composites and the activity index, and runs trend and forecast analysis
// over the recorded series.
package indicators

import "newslens/internal/core"

// def builds a catalog entry with the standard 30/70 threshold band.
func def(id, name string, cat core.PESTELCategory, calc core.CalculationType, weight float64, keywords ...string) core.IndicatorDefinition {
	return core.IndicatorDefinition{
		ID:              id,
		Name:            name,
		Category:        cat,
		Keywords:        keywords,
		CalculationType: calc,
		BaseWeight:      weight,
		Thresholds:      core.Thresholds{Low: 30, High: 70},
		Active:          true,
		Version:         1,
	}
}

func composite(id, name string, cat core.PESTELCategory, calc core.CalculationType, weight float64, components ...string) core.IndicatorDefinition {
	d := def(id, name, cat, calc, weight)
	d.Components = components
	return d
}

// Catalog returns the embedded indicator definitions. The persisted copy
// in the definition repo is seeded from this table and may carry
// learning-layer weight adjustments on top.
func Catalog() []core.IndicatorDefinition {
	p, e, s := core.CategoryPolitical, core.CategoryEconomic, core.CategorySocial
	t, n, l := core.CategoryTechnological, core.CategoryEnvironmental, core.CategoryLegal
	freq, sent := core.CalcFrequencyCount, core.CalcSentimentAggregate

	return []core.IndicatorDefinition{
		// Political
		def("POL_STABILITY", "Government stability", p, sent, 1.2, "government", "cabinet", "coalition", "no-confidence", "resignation", "stability"),
		def("POL_ELECTIONS", "Electoral activity", p, freq, 1.0, "election", "poll", "ballot", "voters", "candidate", "campaign"),
		def("POL_PARLIAMENT", "Parliamentary activity", p, freq, 0.8, "parliament", "bill", "debate", "speaker", "session", "mp"),
		def("POL_POLICY", "Policy announcements", p, freq, 1.1, "policy", "reform", "gazette", "circular", "directive"),
		def("POL_OPPOSITION", "Opposition pressure", p, freq, 0.7, "opposition", "protest march", "motion", "boycott", "dissent"),
		def("POL_INTERNATIONAL", "International relations", p, sent, 0.9, "diplomatic", "bilateral", "embassy", "foreign minister", "treaty", "delegation"),
		def("POL_DEFENSE", "Defense and security", p, freq, 0.8, "military", "defense", "army", "navy", "security forces", "terrorism"),
		def("POL_CORRUPTION", "Corruption exposure", p, freq, 1.0, "corruption", "bribery", "misappropriation", "graft", "kickback"),
		def("POL_PROVINCIAL", "Provincial governance", p, freq, 0.6, "provincial council", "governor", "chief minister", "devolution", "local government"),
		def("POL_CIVIL_SERVICE", "Public administration", p, freq, 0.6, "public sector", "civil service", "state employees", "ministry staff", "bureaucracy"),
		def("POL_PRESIDENCY", "Executive actions", p, freq, 0.9, "president", "presidential", "executive order", "pardon", "appointment"),
		def("POL_UNREST_RISK", "Political unrest risk", p, sent, 1.1, "unrest", "tension", "crisis talks", "emergency", "curfew", "martial"),
		def("POL_MEDIA_FREEDOM", "Press freedom", p, sent, 0.5, "press freedom", "journalist", "censorship", "media rights"),
		def("POL_TRANSPARENCY", "Government transparency", p, freq, 0.5, "right to information", "disclosure", "audit report", "accountability"),
		composite("POL_COMPOSITE", "Political climate", p, core.CalcComposite, 1.0,
			"POL_STABILITY", "POL_POLICY", "POL_UNREST_RISK", "POL_INTERNATIONAL"),

		// Economic
		def("ECON_INFLATION", "Inflation pressure", e, sent, 1.3, "inflation", "price increase", "cost of living", "ccpi", "consumer prices"),
		def("ECON_GDP", "Growth outlook", e, sent, 1.2, "gdp", "economic growth", "expansion", "contraction", "output"),
		def("ECON_CURRENCY", "Currency strength", e, sent, 1.2, "rupee", "exchange rate", "depreciation", "appreciation", "forex"),
		def("ECON_RESERVES", "Foreign reserves", e, sent, 1.1, "reserves", "foreign exchange", "balance of payments", "central bank holdings"),
		def("ECON_INTEREST", "Monetary policy", e, freq, 1.0, "interest rate", "monetary policy", "policy rate", "central bank", "awplr"),
		def("ECON_TRADE", "Trade balance", e, sent, 1.0, "exports", "imports", "trade deficit", "trade surplus", "shipment"),
		def("ECON_DEBT", "Debt sustainability", e, sent, 1.2, "debt", "restructuring", "default", "bondholders", "imf", "repayment"),
		def("ECON_MARKETS", "Capital markets", e, sent, 0.9, "stock exchange", "cse", "shares", "bourse", "market capitalisation", "treasury bond"),
		def("ECON_TOURISM", "Tourism earnings", e, sent, 1.0, "tourism", "tourist arrivals", "hotel occupancy", "travel industry"),
		def("ECON_REMITTANCES", "Worker remittances", e, sent, 0.9, "remittances", "migrant workers", "foreign employment", "worker earnings"),
		def("ECON_INVESTMENT", "Investment climate", e, sent, 1.0, "investment", "fdi", "investor", "venture", "board of investment"),
		def("ECON_AGRICULTURE", "Agricultural output", e, sent, 0.9, "harvest", "paddy", "tea production", "rubber", "coconut", "fertiliser"),
		def("ECON_MANUFACTURING", "Manufacturing activity", e, freq, 0.8, "manufacturing", "factory", "apparel", "industrial production", "pmi"),
		def("ECON_EMPLOYMENT", "Labour market", e, sent, 1.0, "unemployment", "jobs", "hiring", "layoffs", "wages", "labour force"),
		def("ECON_FISCAL", "Fiscal position", e, sent, 1.0, "budget deficit", "tax revenue", "treasury", "fiscal", "government spending"),
		def("ECON_BANKING", "Banking sector", e, sent, 0.9, "bank", "npl", "credit growth", "lending", "deposits", "liquidity"),
		def("ECON_SME", "Small business health", e, sent, 0.7, "sme", "small business", "entrepreneurs", "micro enterprise"),
		composite("ECON_COMPOSITE", "Economic momentum", e, core.CalcComposite, 1.2,
			"ECON_INFLATION", "ECON_GDP", "ECON_CURRENCY", "ECON_DEBT", "ECON_TRADE"),
		composite("ECON_EXTERNAL_RATIO", "External balance ratio", e, core.CalcRatio, 0.8,
			"ECON_TRADE", "ECON_RESERVES"),

		// Social
		def("SOC_UNREST", "Social unrest", s, freq, 1.2, "protest", "strike", "demonstration", "picket", "hartal", "agitation"),
		def("SOC_HEALTH", "Public health", s, sent, 1.1, "hospital", "disease", "outbreak", "epidemic", "dengue", "health ministry"),
		def("SOC_EDUCATION", "Education system", s, sent, 0.9, "school", "university", "education", "students", "teachers", "exams"),
		def("SOC_POVERTY", "Poverty and welfare", s, sent, 1.0, "poverty", "welfare", "samurdhi", "aswesuma", "malnutrition", "food insecurity"),
		def("SOC_MIGRATION", "Migration pressure", s, freq, 0.8, "migration", "emigration", "brain drain", "passport", "visa applications"),
		def("SOC_CRIME", "Crime levels", s, freq, 0.9, "crime", "robbery", "murder", "arrest", "drug raid", "underworld"),
		def("SOC_HOUSING", "Housing conditions", s, sent, 0.6, "housing", "rent", "construction permits", "apartments", "shelter"),
		def("SOC_TRANSPORT_PUBLIC", "Public transport", s, sent, 0.7, "bus service", "railway", "train", "commuters", "transport strike"),
		def("SOC_CONSUMER", "Consumer confidence", s, sent, 1.0, "consumer", "spending", "retail sales", "purchasing", "demand"),
		def("SOC_LABOR_RELATIONS", "Labour relations", s, freq, 0.9, "trade union", "wage dispute", "collective agreement", "work stoppage"),
		def("SOC_RELIGION", "Religious affairs", s, freq, 0.5, "temple", "church", "mosque", "religious", "clergy", "pilgrimage"),
		def("SOC_CULTURE", "Cultural activity", s, freq, 0.4, "festival", "cultural", "heritage", "arts", "exhibition"),
		def("SOC_FOOD_SECURITY", "Food security", s, sent, 1.1, "food prices", "rice", "shortage", "essential goods", "rations"),
		def("SOC_YOUTH", "Youth outlook", s, sent, 0.6, "youth", "graduates", "young people", "student unions"),
		composite("SOC_COMPOSITE", "Social stability", s, core.CalcComposite, 1.0,
			"SOC_UNREST", "SOC_POVERTY", "SOC_FOOD_SECURITY", "SOC_CONSUMER"),

		// Technological
		def("TECH_DIGITAL", "Digital adoption", t, sent, 1.0, "digital", "online services", "e-government", "digitalisation", "connectivity"),
		def("TECH_TELECOM", "Telecom infrastructure", t, sent, 0.9, "telecom", "broadband", "5g", "fibre", "mobile network", "spectrum"),
		def("TECH_STARTUPS", "Startup ecosystem", t, sent, 0.8, "startup", "tech company", "incubator", "funding round", "innovation"),
		def("TECH_CYBER", "Cyber security", t, freq, 0.9, "cyber", "hack", "data breach", "ransomware", "phishing"),
		def("TECH_FINTECH", "Fintech growth", t, sent, 0.8, "fintech", "digital payments", "mobile money", "lankaqr", "digital banking"),
		def("TECH_POWER_GRID", "Power infrastructure", t, sent, 1.2, "electricity", "power cut", "grid", "ceb", "generation", "blackout"),
		def("TECH_ENERGY_SUPPLY", "Fuel and energy supply", t, sent, 1.2, "fuel", "petrol", "diesel", "lpg", "refinery", "fuel queue"),
		def("TECH_TRANSPORT_INFRA", "Transport infrastructure", t, freq, 0.9, "highway", "expressway", "port", "airport", "road development"),
		def("TECH_WATER", "Water infrastructure", t, sent, 0.8, "water supply", "pipeline", "reservoir", "irrigation", "water board"),
		def("TECH_RESEARCH", "Research activity", t, freq, 0.5, "research", "science", "patent", "laboratory", "university research"),
		def("TECH_AI", "AI and automation", t, freq, 0.6, "artificial intelligence", "automation", "machine learning", "robotics"),
		def("TECH_ECOMMERCE", "E-commerce activity", t, sent, 0.7, "e-commerce", "online shopping", "delivery platform", "marketplace"),
		def("TECH_DATA_POLICY", "Data governance", t, freq, 0.5, "data protection", "privacy law", "digital id", "data policy"),
		composite("TECH_COMPOSITE", "Infrastructure readiness", t, core.CalcComposite, 1.0,
			"TECH_POWER_GRID", "TECH_ENERGY_SUPPLY", "TECH_DIGITAL", "TECH_TELECOM"),

		// Environmental
		def("ENV_FLOODS", "Flood activity", n, freq, 1.2, "flood", "inundation", "heavy rain", "overflow", "flash flood"),
		def("ENV_DROUGHT", "Drought conditions", n, freq, 1.1, "drought", "dry spell", "water shortage", "rainfall deficit"),
		def("ENV_MONSOON", "Monsoon behaviour", n, sent, 0.9, "monsoon", "rainfall", "weather warning", "meteorology"),
		def("ENV_LANDSLIDES", "Landslide risk", n, freq, 1.0, "landslide", "earth slip", "nbro", "slope failure", "evacuation"),
		def("ENV_CYCLONES", "Storm activity", n, freq, 1.0, "cyclone", "storm", "gale", "depression", "high winds"),
		def("ENV_POLLUTION", "Pollution levels", n, sent, 0.8, "pollution", "air quality", "emissions", "contamination", "smog"),
		def("ENV_DEFORESTATION", "Forest cover", n, sent, 0.7, "deforestation", "forest", "illegal logging", "encroachment"),
		def("ENV_WILDLIFE", "Wildlife conflict", n, freq, 0.6, "elephant", "wildlife", "human-elephant", "conservation", "poaching"),
		def("ENV_COASTAL", "Coastal health", n, sent, 0.7, "coastal erosion", "marine", "coral", "fisheries", "sea level"),
		def("ENV_CLIMATE_POLICY", "Climate policy", n, freq, 0.6, "climate change", "carbon", "renewable", "solar", "wind power", "emissions target"),
		def("ENV_WASTE", "Waste management", n, sent, 0.5, "garbage", "waste", "landfill", "recycling", "dumping"),
		def("ENV_AGRICULTURE_IMPACT", "Climate impact on crops", n, sent, 0.9, "crop damage", "harvest loss", "weather damage", "yield"),
		composite("ENV_COMPOSITE", "Environmental stress", n, core.CalcComposite, 1.0,
			"ENV_FLOODS", "ENV_DROUGHT", "ENV_LANDSLIDES", "ENV_MONSOON"),

		// Legal
		def("LEG_COURTS", "Judicial activity", l, freq, 0.9, "supreme court", "court of appeal", "ruling", "verdict", "judgment"),
		def("LEG_LEGISLATION", "Legislative change", l, freq, 1.0, "legislation", "act", "amendment", "statute", "legal reform"),
		def("LEG_CONSTITUTIONAL", "Constitutional matters", l, freq, 0.9, "constitution", "constitutional", "fundamental rights", "judicial review"),
		def("LEG_REGULATORY", "Regulatory enforcement", l, freq, 0.9, "regulator", "compliance", "enforcement", "license", "penalty"),
		def("LEG_COMMERCIAL", "Commercial litigation", l, freq, 0.7, "lawsuit", "arbitration", "commercial dispute", "injunction"),
		def("LEG_TAX_LAW", "Tax law changes", l, freq, 0.9, "tax law", "vat", "income tax", "levy", "inland revenue"),
		def("LEG_LABOR_LAW", "Labour law", l, freq, 0.7, "labour law", "employment act", "termination", "epf", "etf", "gratuity"),
		def("LEG_PROPERTY", "Property rights", l, freq, 0.6, "land rights", "property law", "deeds", "acquisition", "title"),
		def("LEG_ANTICORRUPTION", "Anti-corruption enforcement", l, freq, 0.8, "bribery commission", "ciaboc", "asset declaration", "prosecution"),
		def("LEG_TRADE_LAW", "Trade regulation", l, freq, 0.7, "import regulation", "customs", "tariff change", "trade agreement"),
		def("LEG_HUMAN_RIGHTS", "Rights and liberties", l, sent, 0.6, "human rights", "detention", "habeas corpus", "rights commission"),
		composite("LEG_COMPOSITE", "Legal environment", l, core.CalcComposite, 1.0,
			"LEG_LEGISLATION", "LEG_REGULATORY", "LEG_CONSTITUTIONAL"),
	}
}

// CatalogByID indexes the embedded catalog.
func CatalogByID() map[string]core.IndicatorDefinition {
	defs := Catalog()
	out := make(map[string]core.IndicatorDefinition, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}
