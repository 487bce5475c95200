package category

import "github.com/deusflow/newscrawler/internal/model"

// region describes a regional category reached through LOCAL + a location.
type region struct {
	Code string
	// Aliases are matched by case-insensitive containment in the context.
	Aliases []string
	// Places form the OR topic and the keyword filter.
	Places []string
	Sites  []string
}

// regions is ordered: the first entry whose alias matches wins. GTA comes
// first so "Richmond Hill" is not taken by Vancouver's "Richmond".
var regions = []region{
	{
		Code: model.GTA,
		Aliases: []string{
			"toronto", "gta", "greater toronto", "多伦多", "大多伦多",
			"richmond hill", "列治文山", "markham", "万锦", "mississauga", "密西沙加",
			"scarborough", "士嘉堡", "north york", "北约克", "etobicoke", "vaughan", "旺市",
			"brampton", "oakville", "奥克维尔", "pickering", "ajax", "whitby", "oshawa",
			"newmarket", "aurora",
		},
		Places: []string{"Toronto", "Mississauga", "Markham", "Richmond Hill", "Scarborough", "North York", "Vaughan", "Brampton", "Oakville"},
		Sites:  []string{"cbc.ca", "thestar.com", "cp24.com", "toronto.ctvnews.ca", "blogto.com"},
	},
	{
		Code: model.Waterloo,
		Aliases: []string{
			"waterloo", "滑铁卢", "kitchener", "基奇纳", "cambridge, on", "guelph", "圭尔夫",
		},
		Places: []string{"Waterloo", "Kitchener", "Cambridge", "Guelph"},
		Sites:  []string{"therecord.com", "kitchener.ctvnews.ca", "cbc.ca"},
	},
	{
		Code: model.Ottawa,
		Aliases: []string{
			"ottawa", "渥太华", "gatineau", "kanata", "卡纳塔", "nepean",
		},
		Places: []string{"Ottawa", "Gatineau", "Kanata", "Nepean"},
		Sites:  []string{"ottawacitizen.com", "ottawa.ctvnews.ca", "cbc.ca"},
	},
	{
		Code: model.Montreal,
		Aliases: []string{
			"montreal", "montréal", "蒙特利尔", "满地可", "laval", "拉瓦尔", "longueuil", "brossard",
		},
		Places: []string{"Montreal", "Montréal", "Laval", "Longueuil", "Brossard"},
		Sites:  []string{"montrealgazette.com", "montreal.ctvnews.ca", "cbc.ca"},
	},
	{
		Code: model.Vancouver,
		Aliases: []string{
			"vancouver", "温哥华", "大温", "burnaby", "本拿比", "richmond", "列治文",
			"surrey", "素里", "coquitlam", "高贵林", "north vancouver", "west vancouver",
		},
		Places: []string{"Vancouver", "Burnaby", "Richmond", "Surrey", "Coquitlam"},
		Sites:  []string{"vancouversun.com", "bc.ctvnews.ca", "dailyhive.com", "cbc.ca"},
	},
	{
		Code:    model.Calgary,
		Aliases: []string{"calgary", "卡尔加里", "卡加利", "airdrie", "cochrane"},
		Places:  []string{"Calgary", "Airdrie"},
		Sites:   []string{"calgaryherald.com", "calgary.ctvnews.ca", "cbc.ca"},
	},
	{
		Code:    model.Edmonton,
		Aliases: []string{"edmonton", "埃德蒙顿", "爱民顿", "st. albert", "sherwood park"},
		Places:  []string{"Edmonton", "St. Albert", "Sherwood Park"},
		Sites:   []string{"edmontonjournal.com", "edmonton.ctvnews.ca", "cbc.ca"},
	},
}

func regionByCode(code string) (region, bool) {
	for _, r := range regions {
		if r.Code == code {
			return r, true
		}
	}
	return region{}, false
}

// national holds the built-in query parameters for non-local canonical codes.
var national = map[string]struct {
	Topic    string
	Keywords []string
}{
	model.Canada: {
		Topic:    "Canada news",
		Keywords: []string{"Canada", "Ottawa", "federal", "Canadian"},
	},
	model.USA: {
		Topic:    "United States news",
		Keywords: []string{"U.S.", "Washington", "White House", "Congress"},
	},
	model.China: {
		Topic:    "China news",
		Keywords: []string{"China", "Beijing", "Chinese", "中国"},
	},
	model.International: {
		Topic:    "world news",
		Keywords: []string{"international", "global", "world"},
	},
}
