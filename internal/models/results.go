package models

// Risk categories of the ranked results, from most to least severe.
const (
	RiskHigh     = "ALTO"
	RiskModerate = "MODERADO"
	RiskTypical  = "TÍPICO"
	RiskLow      = "BAIXO"
)

// RiskCategories lists the categories in display order.
var RiskCategories = []string{RiskHigh, RiskModerate, RiskTypical, RiskLow}

// FilteringStage is one step of the offline data-cleaning funnel and the dataset size after it.
type FilteringStage struct {
	Name string `json:"etapa"`
	Size int    `json:"tamanho"`
}

// RiskCount is the number of ranked records in one risk category.
type RiskCount struct {
	Category string `json:"risco"`
	Count    int    `json:"total"`
}
