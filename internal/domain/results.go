package domain

// Progress 是计票进度与投票率统计。
//
// 约束：百分比字段要么由计数器计算得出，要么（okres/dávka 文档）直接取自文档自带的百分比字段。
type Progress struct {
	TotalUnits   int     `json:"total_districts"`
	CountedUnits int     `json:"counted_districts"`
	CountedPct   float64 `json:"percentage_counted"`
	Voters       int     `json:"total_voters"`
	Ballots      int     `json:"total_votes"`
	ValidVotes   int     `json:"valid_votes"`
	Turnout      float64 `json:"turnout"`
}

// NationalParty 是全国汇总的政党结果。
// Code 保持字符串（保留前导零/字母编号）；Number 由 Code 按整数解析得到，仅用于排序。
type NationalParty struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Number     int     `json:"number"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
	Mandates   int     `json:"mandates"` // 席位分配未实现，恒为 0
}

// PartyShare 是带百分比的政党得票（百分比相对于最近一层的有效票总数）。
type PartyShare struct {
	Code       string  `json:"code"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// PartyVotes 是不带百分比的政党得票（最细粒度的数据源没有百分比字段）。
type PartyVotes struct {
	Code  string `json:"code"`
	Votes int    `json:"votes"`
}

const RegionTypeKraj = "kraj"

type Region struct {
	Code    string       `json:"code"`
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Parties []PartyShare `json:"parties"`
}

// NationalResult 是全国结果文档的解析结果。
// Progress 为 nil 表示“尚无数据”（区别于 0% 已计票）。
type NationalResult struct {
	GeneratedAt string          `json:"generated_at"`
	Progress    *Progress       `json:"progress"`
	Parties     []NationalParty `json:"parties"`
	Regions     []Region        `json:"regions"`
}

type Municipality struct {
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Processed bool         `json:"counted"`
	Parties   []PartyVotes `json:"parties"`
}

// DistrictResult 是单个 okres 文档的解析结果。Code 由调用方提供，仅用于标记输出。
type DistrictResult struct {
	GeneratedAt    string         `json:"generated_at"`
	Code           string         `json:"okres_code"`
	Name           string         `json:"okres_name"`
	Progress       *Progress      `json:"progress"`
	Parties        []PartyShare   `json:"parties"`
	Municipalities []Municipality `json:"obce"`
}

// Candidate 是候选人名单中的一条记录（保持文档顺序，不分组不排序）。
type Candidate struct {
	PartyCode      string  `json:"party_code"`
	RegionCode     string  `json:"region_code"`
	Name           string  `json:"name"`
	Surname        string  `json:"surname"`
	TitleBefore    string  `json:"title_before"`
	TitleAfter     string  `json:"title_after"`
	Position       int     `json:"position"`
	PrefVotes      int     `json:"preferential_votes"`
	PrefPercentage float64 `json:"preferential_percentage"`
	Elected        bool    `json:"elected"`
}

// Country 是境外投票中单个国家的结果。
type Country struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	ValidVotes int          `json:"votes"`
	Parties    []PartyVotes `json:"parties"`
}

// OverseasResult 是境外投票文档的解析结果。
type OverseasResult struct {
	GeneratedAt string       `json:"generated_at"`
	ValidVotes  int          `json:"total_votes"`
	Parties     []PartyShare `json:"parties"`
	Countries   []Country    `json:"countries"`
}
