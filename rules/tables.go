package rules

// defaultSpecs is the built-in Korean lexicon. Order inside each table is
// significant: first-match tables return the earliest hit and union tables
// report labels in table order.
var defaultSpecs = []TableSpec{
	{Field: "building_structure", Policy: PolicyUnion, Rules: []RuleSpec{
		{`비닐하우스\s*파이프조`, "비닐하우스파이프조"},
		{`비닐하우스`, "비닐하우스"},
		{`컨테이너조\s*컨테이너|컨테이너조|컨테이너`, "컨테이너조"},
		{`샌드위치패널조`, "샌드위치패널조"},
		{`철골조`, "철골조"},
		{`철근콘크리트조`, "철근콘크리트조"},
		{`SRC|철골철근콘크리트조`, "SRC"},
		{`벽돌조`, "벽돌조"},
		{`블록조`, "블록조"},
		{`목조`, "목조"},
		{`슬라브가`, "슬라브"},
		{`스레트가`, "슬레이트"},
		{`시멘트기와`, "시멘트기와"},
		{`한식기와|와가`, "기와"},
		{`칼라피복철판`, "칼라피복철판"},
	}},
	{Field: "building_usage_status", Policy: PolicyFirst, Rules: []RuleSpec{
		{`개축`, "개축"},
		{`공가`, "공가"},
		{`신축`, "신축"},
		{`증축`, "증축"},
		{`철거`, "철거중"},
		{`공사\s*중|리모델링`, "기타 공사중"},
		{`사용\s*중|영업\s*중|운영\s*중|수업\s*중|근무\s*중`, "사용중"},
	}},
	{Field: "multi_use_flag", Policy: PolicyKeyword, Rules: keywordRules(
		`노래방`, `피시방`, `PC방`, `영화관`, `마트`, `백화점`, `학원`,
		`클럽`, `주점`, `지하상가`, `역사`, `놀이공원`, `병원`,
	)},
	{Field: "fuel_type", Policy: PolicyFirst, IgnoreCase: true, Rules: []RuleSpec{
		{`경유`, "유류 경유"},
		{`등유`, "유류 등유"},
		{`중유`, "유류 중유"},
		{`가솔린`, "유류 가솔린"},
		{`알코올`, "유류 알코올"},
		{`LNG|액화천연가스`, "가스 액화천연가스(LNG)"},
		{`LPG|액화석유가스`, "가스 액화석유가스(LPG)"},
		{`부탄`, "가스 부탄가스"},
		{`가스`, "가스 기타 가연성가스"},
		{`나무`, "고체연료 나무"},
		{`목탄`, "고체연료 목탄"},
		{`석탄`, "고체연료 석탄"},
		{`종이`, "고체연료 종이"},
		{`화학`, "고체연료 화학연료"},
		{`고체`, "고체연료 기타 고체연료"},
		{`110V`, "전기 110V이하 상용전원"},
		{`12V`, "전기 직류 12V 이하(배터리) 전원"},
		{`24V`, "전기 직류 24V 이상(배터리) 전원"},
		{`22\.9 ?kv`, "전기 22.9kv 이상 전원"},
		{`3300V`, "전기 3,300V이상 상용전원"},
		{`380/220V`, "전기 380/220V이상 상용전원"},
		{`440V`, "전기 440V이상 상용전원"},
		{`전기`, "전기 기타 전원"},
		{`유류`, "유류 기타 액체연료"},
		{`기타`, "기타 기타"},
	}},
	{Field: "fire_management_target_flag", Policy: PolicyKeyword, Rules: keywordRules(
		`방화관리`, `소방대상`, `소방관리`, `특정소방대상`, `방화 대상`,
	)},
	{Field: "unit_wind_speed", Policy: PolicyFirst, Rules: []RuleSpec{
		{`매우\s*강|태풍|돌풍|강풍`, "매우 강한 바람"},
		{`강한\s*바람|세찬 바람`, "강한 바람"},
		{`보통\s*바람|평범한 바람`, "보통 바람"},
		{`약한\s*바람|산들바람`, "약한 바람"},
		{`잔잔|고요|무풍`, "잔잔함"},
	}},
	{Field: "facility_location", Policy: PolicyUnion, Rules: []RuleSpec{
		{`지하\s*\d*\s*층|지하상가|지하주차장|지하`, "지하"},
		{`임야|숲|산불|들불|들판|묘지|목초지|논밭|공유림|국유림|사유림|군사격장`, "임야"},
		{`주택|단독주택|공동주택|아파트|연립주택|다세대|다가구|상가주택|기숙사|주상복합`, "주거"},
		{`도로|전봇대|가로등`, "도로"},
		{`공터|야외|야적장|모닥불|볏짚|쓰레기`, "야외"},
		{`선박|어선|항공기|비행기|헬리콥터|유람선|화물선|여객선|바지선`, "선박/항공기"},
		{`상가|백화점|시장|마트|할인점|쇼핑센터|오피스텔|빌딩|회사|신문사|금융기관|공관|청사`, "판매/업무"},
		{`군사시설|막사`, "군사시설"},
		{`교도소|구치소|교정시설`, "교정시설"},
		{`모텔|호텔|여관|여인숙|펜션|민박|콘도|숙박공유업|산장`, "숙박"},
		{`병원|의원|한의원|치과|종합병원|요양병원|장례식장|정신병원`, "의료시설"},
		{`약국`, "의료시설"},
		{`경로당|양로원|어린이집|유치원|노인복지시설|사회복지시설|아동복지시설|장애인재활시설`, "노유자시설"},
		{`요양소|요양시설`, "노유자시설"},
		{`마사지|목욕장|사우나|찜질방|요가수련장|단식수련원`, "건강시설"},
		{`청소년수련원|청소년야영장|청소년수련관|청소년문화의집`, "청소년시설"},
		{`자동차|승용차|트럭|버스|화물차|오토바이|승합차|캠핑용|특수자동차`, "자동차"},
		{`철도차량|기관차|전동차`, "철도차량"},
		{`건설기계|덤프트럭|굴삭기`, "건설기계"},
		{`농업기계|경운기|트랙터`, "농업기계"},
		{`위험물제조소|가스제조소`, "위험물/가스제조소"},
	}},
	{Field: "forest_fire_flag", Policy: PolicyUnion, Rules: []RuleSpec{
		{`산정상|정상`, "산정상"},
		{`산중턱|중턱`, "산중턱"},
		{`산아래|산기슭|산밑`, "산아래"},
		{`평지`, "평지"},
		{`사유림`, "사유림"},
		{`국유림`, "국유림"},
		{`공유림`, "공유림"},
		{`숲`, "숲"},
		{`들판|들불`, "들판"},
		{`논밭|논밭두렁`, "논밭두렁"},
		{`묘지`, "묘지"},
		{`기타`, "기타"},
	}},
	{Field: "vehicle_fire_flag", Policy: PolicyUnion, Rules: []RuleSpec{
		{`고속도로`, "고속도로"},
		{`일반도로`, "일반도로"},
		{`도로`, "도로"},
		{`터널`, "터널"},
		{`주차장`, "주차장"},
		{`철도차량`, "철도차량"},
		{`객실|좌석`, "객실"},
		{`바퀴`, "바퀴"},
		{`공지`, "공지"},
		{`미상`, "미상"},
	}},
	{Field: "ignition_material", Policy: PolicyUnion, Rules: []RuleSpec{
		{`소파`, "가구 소파"},
		{`옷장|책장`, "가구 옷장,책장"},
		{`침대|매트리스`, "가구 침대,매트리스"},
		{`테이블|의자`, "가구 테이블,의자"},
		{`가구`, "가구 기타"},

		{`튀김유`, "식품 튀김유"},
		{`음식|음식물`, "식품 음식물"},
		{`식품`, "식품 기타"},

		{`기판`, "전기,전자 기판"},
		{`절연유`, "전기,전자 절연유"},
		{`케이스`, "전기,전자 케이스"},
		{`배선`, "전기,전자 내부배선"},
		{`콘센트|스위치`, "전기,전자 콘센트,스위치"},
		{`전선`, "전기,전자 전선피복"},
		{`모터|히터|램프`, "전기,전자 작동장치"},
		{`전자기기`, "전기,전자 기타"},

		{`풀|나뭇잎`, "종이,목재,건초등 풀,나뭇잎"},
		{`건초`, "종이,목재,건초등 건초"},
		{`나무`, "종이,목재,건초등 나무"},
		{`잔디`, "종이,목재,건초등 잔디"},
		{`종이`, "종이,목재,건초등 종이"},
		{`톱밥`, "종이,목재,건초등 톱밥"},
		{`목재|합판`, "종이,목재,건초등 목재,합판"},

		{`의류`, "침구,직물류 의류"},
		{`카펫`, "침구,직물류 카펫"},
		{`커튼`, "침구,직물류 커튼"},
		{`걸레|행주`, "침구,직물류 행주,기름걸레"},
		{`이불|베개|시트`, "침구,직물류 이불"},
		{`부직포`, "침구,직물류 부직포"},
		{`침구|직물`, "침구,직물류 기타"},

		{`광고판`, "간판,차양막등 광고판"},
		{`차양막`, "간판,차양막등 차양막"},
		{`네온사인`, "간판,차양막등 네온사인"},
		{`플래카드`, "간판,차양막등 플래카드"},
		{`간판`, "간판,차양막등 기타"},

		{`배관`, "자동차,철도차량,선박,항공기 배관"},
		{`범퍼`, "자동차,철도차량,선박,항공기 범퍼"},

		{`미상`, "미상"},
		{`기타`, "기타"},
	}},
	{Field: "special_fire_object_name", Policy: PolicyFirst, Rules: []RuleSpec{
		{`공장`, "공장"},
		{`묘지`, "묘지 관련 시설"},
		{`문화재`, "문화재"},
		{`지하가`, "지하가"},
		{`지하구`, "지하구"},
		{`공동주택`, "공동주택"},
		{`교정시설`, "교정시설"},
		{`발전`, "발전시설"},
		{`숙박`, "숙박시설"},
		{`업무`, "업무시설"},
		{`운동`, "운동시설"},
		{`운수`, "운수시설"},
		{`위락`, "위락시설"},
		{`의료`, "의료시설"},
		{`장례`, "장례시설"},
		{`종교`, "종교시설"},
		{`창고`, "창고시설"},
		{`문화집회|운동시설`, "문화집회 및 운동시설"},
		{`판매|영업`, "판매시설 및 영업시설"},
		{`노유자`, "노유자시설"},
		{`복합건축물`, "복합건축물"},
		{`청소년`, "청소년시설"},
		{`위험물`, "위험물저장 및 처리시설"},
		{`관광|휴게`, "관광휴게시설"},
		{`교육|연구`, "교육연구시설"},
		{`근린생활`, "근린생활시설"},
		{`통신|촬영`, "통신촬영시설"},
		{`동식물`, "동식물관련시설"},
		{`위생`, "위생등관련시설"},
		{`자동차`, "운수자동차관련시설"},
	}},
	{Field: "wind_direction", Policy: PolicyFirst, Rules: []RuleSpec{
		{`북동\s*풍|북동쪽\s*바람`, "NE"},
		{`북서\s*풍|북서쪽\s*바람`, "NW"},
		{`남동\s*풍|남동쪽\s*바람`, "SE"},
		{`남서\s*풍|남서쪽\s*바람`, "SW"},
		{`북\s*풍|북쪽\s*바람`, "N"},
		{`남\s*풍|남쪽\s*바람`, "S"},
		{`동\s*풍|동쪽\s*바람`, "E"},
		{`서\s*풍|서쪽\s*바람`, "W"},
	}},
	{Field: "hazards", Policy: PolicyUnion, Rules: []RuleSpec{
		{`연기`, "연기"},
		{`유독\s*가스`, "유독가스"},
		{`폭발|펑\s*소리`, "폭발"},
		{`붕괴|무너`, "붕괴"},
		{`불길|화염`, "화염"},
		{`가스\s*누출|가스가\s*새`, "가스누출"},
		{`갇혔|갇혀|고립`, "고립"},
	}},

	// Numeric captures: the first group holds the number; a "-" label negates it.
	{Field: "total_floor_count", Policy: PolicyCapture, Rules: []RuleSpec{
		{`총\s*(\d+)\s*층`, ""},
		{`(\d+)\s*층\s*(?:짜리\s*)?(?:건물|빌딩|아파트|주택|건축물)`, ""},
	}},
	{Field: "building_agreement_count", Policy: PolicyCapture, Rules: []RuleSpec{
		{`(\d[\d,]*)\s*세대`, ""},
		{`(\d+)\s*개\s*동`, ""},
	}},
	{Field: "total_floor_area", Policy: PolicyCapture, Rules: []RuleSpec{
		{`(?:연면적|바닥\s*면적|면적)\s*(?:은|는|이|가)?\s*(?:약\s*)?(\d[\d,]*(?:\.\d+)?)\s*(?:㎡|제곱미터|m2|평방미터)`, ""},
	}},
	{Field: "soot_area", Policy: PolicyCapture, Rules: []RuleSpec{
		{`그을음\s*(?:면적)?\s*(?:은|는|이|가)?\s*(?:약\s*)?(\d[\d,]*(?:\.\d+)?)\s*(?:㎡|제곱미터|m2|평방미터)`, ""},
	}},
	{Field: "unit_temperature", Policy: PolicyCapture, Rules: []RuleSpec{
		{`(?:기온|온도)\s*(?:은|는|이|가)?\s*영하\s*(\d+(?:\.\d+)?)\s*(?:도|℃)`, "-"},
		{`(?:기온|온도)\s*(?:은|는|이|가)?\s*(?:약\s*)?(-?\d+(?:\.\d+)?)\s*(?:도|℃)`, ""},
	}},
	{Field: "unit_humidity", Policy: PolicyCapture, Rules: []RuleSpec{
		{`습도\s*(?:은|는|이|가)?\s*(?:약\s*)?(\d+(?:\.\d+)?)\s*(?:%|퍼센트|프로)`, ""},
	}},
}

func keywordRules(patterns ...string) []RuleSpec {
	out := make([]RuleSpec, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, RuleSpec{Pattern: p, Label: "Y"})
	}
	return out
}
