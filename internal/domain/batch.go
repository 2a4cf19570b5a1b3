package domain

// BatchType 选择增量批次文件的粒度。只有三个合法值。
type BatchType string

const (
	BatchPollingUnits   BatchType = "okrsky"
	BatchMunicipalities BatchType = "obce"
	BatchDistricts      BatchType = "okresy"
)

func (t BatchType) Valid() bool {
	switch t {
	case BatchPollingUnits, BatchMunicipalities, BatchDistricts:
		return true
	default:
		return false
	}
}

// BatchItem 是批次中的一条记录；具体类型由 BatchResult.Type 决定。
type BatchItem interface {
	ItemCode() string
}

// PollingUnitItem 对应 okrsek 粒度。
type PollingUnitItem struct {
	Code             string       `json:"code"`
	MunicipalityCode string       `json:"obec_code"`
	Processed        bool         `json:"processed"`
	Parties          []PartyVotes `json:"parties"`
}

// MunicipalityItem 对应 obec 粒度。
type MunicipalityItem struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	DistrictCode string       `json:"okres_code"`
	Processed    bool         `json:"processed"`
	Turnout      float64      `json:"turnout"`
	Parties      []PartyShare `json:"parties"`
}

// DistrictItem 对应 okres 粒度。
type DistrictItem struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	RegionCode   string       `json:"kraj_code"`
	CountedUnits int          `json:"counted_districts"`
	TotalUnits   int          `json:"total_districts"`
	Turnout      float64      `json:"turnout"`
	Parties      []PartyShare `json:"parties"`
}

func (i PollingUnitItem) ItemCode() string  { return i.Code }
func (i MunicipalityItem) ItemCode() string { return i.Code }
func (i DistrictItem) ItemCode() string     { return i.Code }

// BatchResult 是一份批次文件的解析结果。
// 未知的 Type 不报错：Items 为空。
type BatchResult struct {
	GeneratedAt string      `json:"generated_at"`
	Type        BatchType   `json:"batch_type"`
	Items       []BatchItem `json:"items"`
}
