package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smallnest/faqgraph/rag"
)

// pattern maps folded surface forms to a canonical value. Capturing patterns
// leave value empty and derive it from the regex groups with norm.
type pattern struct {
	value string
	re    *regexp.Regexp
	norm  func(groups []string) string
}

type typeTable struct {
	typ      rag.EntityType
	patterns []pattern
}

// alt builds a word-bounded pattern over folded alternatives.
func alt(value string, alternatives ...string) pattern {
	return pattern{
		value: value,
		re:    regexp.MustCompile(`\b(?:` + strings.Join(alternatives, "|") + `)\b`),
	}
}

// claimOnly reserves spans without emitting an entity, so a generic pattern
// later in the table does not fire inside them.
func claimOnly(alternatives ...string) pattern {
	return alt("", alternatives...)
}

func capture(expr string, norm func(groups []string) string) pattern {
	return pattern{re: regexp.MustCompile(expr), norm: norm}
}

// Tables are ordered: within a type, specific patterns come before generic
// ones so the longer span is claimed first.
var tables = []typeTable{
	{rag.EntityTopic, []pattern{
		alt("nap tien dien thoai", `nap (?:tien )?(?:dien thoai|dt)`, `mua the cao`, `nap the cao`, `nap the dien thoai`),
		alt("huy lien ket ngan hang", `huy lien ket(?: tai khoan)?(?: ngan hang| the)?`),
		alt("lien ket ngan hang", `lien ket (?:tai khoan |the )?(?:ngan hang|nh)`, `lien ket the`, `lien ket tai khoan`),
		alt("chuyen tien", `chuyen tien`, `chuyen khoan`, `ck`),
		alt("nap tien", `nap tien`, `nap vao vi`, `nap vi`, `top ?up`),
		alt("rut tien", `rut tien`, `rut ve(?: ngan hang| tai khoan)?`, `rut`),
		alt("thanh toan hoa don", `thanh toan hoa don`, `tra hoa don`, `dong tien (?:dien|nuoc|mang)`),
		alt("thanh toan", `thanh toan`, `tra tien`, `quet ma`),
		alt("hoan tien", `hoan tien`, `tra lai tien`, `hoan lai`),
		alt("dang ky tai khoan", `dang ky (?:tai khoan|vi|moi)`, `mo (?:tai khoan|vi)`, `tao tai khoan`),
		alt("xac thuc tai khoan", `xac thuc(?: tai khoan| danh tinh)?`, `ekyc`, `dinh danh`),
		alt("doi so dien thoai", `(?:doi|thay doi|cap nhat) so dien thoai`, `doi sdt`),
		alt("mat khau", `mat khau`, `mat ma`, `ma pin`, `pin`),
		alt("otp", `otp`, `ma xac nhan`, `ma xac thuc`),
		alt("khoa tai khoan", `khoa (?:tai khoan|vi)`, `mo khoa (?:tai khoan|vi)`),
	}},
	{rag.EntityAction, []pattern{
		claimOnly(`quan doi`, `doi tac`, `doi tuong`),
		alt("huy lien ket", `huy lien ket`),
		alt("lien ket", `lien ket`, `ket noi`),
		alt("mo khoa", `mo khoa`),
		alt("khoa", `khoa (?:tai khoan|vi|the)`),
		alt("nap", `nap`),
		alt("rut", `rut`),
		alt("chuyen", `chuyen`, `gui tien`),
		alt("thanh toan", `thanh toan`, `tra tien`),
		alt("dang ky", `dang ky`, `mo tai khoan`, `tao tai khoan`),
		alt("huy", `huy`),
		alt("khoi phuc", `lay lai`, `khoi phuc`, `dat lai`, `reset`, `quen`),
		alt("doi", `thay doi`, `doi`, `cap nhat`),
		alt("kiem tra", `kiem tra`, `tra cuu`, `xem`),
		alt("xac thuc", `xac thuc`, `xac minh`),
	}},
	{rag.EntityBank, bankPatterns()},
	{rag.EntityError, []pattern{
		alt("khong nhan duoc otp", `(?:khong|chua) nhan (?:duoc )?(?:ma )?(?:otp|ma xac nhan)`),
		alt("khong nhan duoc tien", `(?:khong|chua) nhan (?:duoc )?tien`, `tien chua (?:ve|den)`, `chua ve tai khoan`),
		alt("bi tru tien", `bi tru tien`, `da tru tien`, `tru tien (?:nhung|ma)`, `mat tien`),
		alt("khong dang nhap duoc", `khong (?:the )?dang nhap(?: duoc)?`, `khong vao duoc (?:app|ung dung)`),
		alt("sai mat khau", `sai (?:mat khau|ma pin|pin)`, `nhap sai`),
		alt("giao dich that bai", `giao dich (?:bi )?(?:that bai|khong thanh cong|loi)`, `that bai`, `khong thanh cong`),
		alt("loi he thong", `loi he thong`, `he thong (?:dang )?(?:ban|bao tri|loi)`, `bao tri`),
		alt("giao dich dang xu ly", `dang xu ly`, `cho xu ly`, `treo`),
		alt("khong thuc hien duoc", `khong (?:the )?\w+ duoc`, `khong duoc`),
		alt("loi", `bi loi`, `gap loi`, `bao loi`, `loi`),
	}},
	{rag.EntityErrorCode, []pattern{
		capture(`\bma loi\s*[:#]?\s*([a-z]{0,4}[-_]?\d{1,5})\b`, upperCode),
		capture(`\b((?:e|er|err)[-_]?\d{2,5})\b`, upperCode),
		capture(`\b(?:loi|error|code)\s*[:#]?\s*(\d{3,5})\b`, upperCode),
	}},
	{rag.EntityFeature, []pattern{
		alt("ma qr", `ma qr`, `qr ?code`, `qr`),
		alt("sinh trac hoc", `sinh trac hoc`, `van tay`, `khuon mat`, `face ?id`, `touch ?id`),
		alt("lich su giao dich", `lich su giao dich`, `sao ke`, `lich su`),
		alt("so du", `so du`),
		alt("tiet kiem", `tiet kiem`, `gui gop`),
		alt("uu dai", `uu dai`, `khuyen mai`, `voucher`, `ma giam gia`, `hoan xu`),
		alt("thong bao", `thong bao`, `bien dong so du`),
		alt("tu dong thanh toan", `tu dong (?:thanh toan|gia han|tru tien)`),
	}},
	{rag.EntityService, []pattern{
		claimOnly(`dien thoai`),
		alt("dien", `tien dien`, `hoa don dien`, `evn`),
		alt("nuoc", `tien nuoc`, `hoa don nuoc`),
		alt("internet", `internet`, `cuoc mang`, `wifi`, `cap quang`),
		alt("truyen hinh", `truyen hinh`, `my tv`, `mytv`),
		alt("cuoc di dong", `cuoc (?:di dong|tra sau)`, `tra sau`),
		alt("hoc phi", `hoc phi`),
		alt("bao hiem", `bao hiem`, `bhyt`, `bhxh`),
		alt("ve tau xe", `ve may bay`, `ve tau`, `ve xe`),
		alt("vay", `khoan vay`, `tra no`, `vay tieu dung`, `tra gop`),
	}},
	{rag.EntityAmount, []pattern{
		capture(`\b(\d+(?:[.,]\d+)*)\s*(trieu|tr|nghin|ngan|k|ty|d|dong|vnd)\b`, normalizeAmount),
	}},
	{rag.EntityFee, []pattern{
		alt("phi giao dich", `phi (?:giao dich|chuyen tien|rut tien|nap tien|thanh toan)`),
		alt("phi duy tri", `phi (?:duy tri|thuong nien|quan ly)`),
		alt("mien phi", `mien phi`, `khong mat phi`, `free`),
		alt("phi", `bieu phi`, `phi`, `mat bao nhieu tien`),
	}},
	{rag.EntityLimit, []pattern{
		alt("han muc ngay", `han muc (?:trong |mot |1 )?ngay`, `toi da (?:trong |mot |1 )?ngay`),
		alt("han muc giao dich", `han muc (?:giao dich|chuyen tien|rut tien|nap tien|rut|nap)`),
		alt("so du toi thieu", `so du toi thieu`),
		alt("han muc", `han muc`, `gioi han`, `toi da`, `toi thieu`),
	}},
	{rag.EntityTimeFrame, []pattern{
		alt("ngay lam viec", `ngay lam viec`),
		alt("24/7", `24\s*/\s*7`, `ca ngay`),
		alt("cuoi tuan", `cuoi tuan`, `thu bay`, `chu nhat`, `ngay le`),
		alt("ngay lap tuc", `ngay lap tuc`, `tuc thi`),
		alt("bao lau", `bao lau`, `khi nao`, `bao gio`),
	}},
	{rag.EntityDocument, []pattern{
		alt("cccd", `can cuoc(?: cong dan)?`, `cccd`),
		alt("cmnd", `chung minh (?:nhan dan|thu)`, `cmnd`),
		alt("ho chieu", `ho chieu`, `passport`),
		alt("giay phep lai xe", `giay phep lai xe`, `bang lai(?: xe)?`),
	}},
	{rag.EntityAccountStatus, []pattern{
		alt("bi khoa", `(?:da )?bi (?:tam )?khoa`),
		alt("chua xac thuc", `chua (?:xac thuc|dinh danh|ekyc)`),
		alt("da xac thuc", `da (?:xac thuc|dinh danh|ekyc)`),
		alt("dong bang", `dong bang`, `phong toa`),
		alt("het han", `het han`),
	}},
	{rag.EntityChannel, []pattern{
		alt("ung dung", `ung dung`, `app`),
		alt("website", `website`, `trang web`, `web`),
		alt("tong dai", `tong dai`, `hotline`, `goi dien`, `cham soc khach hang`, `cskh`),
		alt("diem giao dich", `quay giao dich`, `diem giao dich`, `cua hang`, `buu dien`),
		alt("sms", `sms`, `tin nhan`, `ussd`),
		alt("atm", `atm`, `cay rut tien`),
	}},
	{rag.EntityStep, []pattern{
		capture(`\bbuoc\s*(?:so\s*)?(\d{1,2})\b`, func(g []string) string { return strings.TrimLeft(g[1], "0") }),
		capture(`\bbuoc (mot|hai|ba|bon|tu|nam|sau|bay|tam|chin|muoi)\b`, func(g []string) string { return wordNumber(g[1]) }),
	}},
}

// bank aliases, folded; the first entry of each list is the canonical value
var bankAliases = [][]string{
	{"vietcombank", "vcb", "ngoai thuong"},
	{"vietinbank", "viettinbank", "ctg", "cong thuong"},
	{"bidv", "dau tu va phat trien"},
	{"agribank", "agri", "nong nghiep"},
	{"techcombank", "tcb", "ky thuong"},
	{"mb bank", "mbbank", "mb", "quan doi"},
	{"acb"},
	{"vpbank", "vp bank", "vpb"},
	{"tpbank", "tp bank", "tien phong"},
	{"sacombank", "stb", "sai gon thuong tin"},
	{"hdbank", "hd bank"},
	{"vib"},
	{"shb", "sai gon ha noi"},
	{"ocb", "phuong dong"},
	{"seabank", "sea bank", "dong nam a"},
	{"msb", "maritime bank", "hang hai"},
	{"lpbank", "lienvietpostbank", "lien viet", "lpb"},
	{"vnpt money", "vnptmoney", "vi vnpt"},
}

func bankPatterns() []pattern {
	pats := make([]pattern, 0, len(bankAliases))
	for _, aliases := range bankAliases {
		quoted := make([]string, len(aliases))
		for i, a := range aliases {
			quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(a), " ", `\s*`)
		}
		pats = append(pats, alt(aliases[0], quoted...))
	}
	return pats
}

var bankIndex = func() map[string]string {
	idx := make(map[string]string)
	for _, aliases := range bankAliases {
		for _, a := range aliases {
			idx[strings.ReplaceAll(a, " ", "")] = aliases[0]
		}
	}
	return idx
}()

// CanonicalBank maps a folded bank name or alias to its canonical value.
// Unknown names are returned unchanged.
func CanonicalBank(folded string) string {
	key := strings.TrimPrefix(strings.ReplaceAll(folded, " ", ""), "nganhang")
	if c, ok := bankIndex[key]; ok {
		return c
	}
	return folded
}

func upperCode(g []string) string {
	return strings.ToUpper(g[1])
}

var amountUnits = map[string]int64{
	"ty": 1_000_000_000, "trieu": 1_000_000, "tr": 1_000_000,
	"nghin": 1_000, "ngan": 1_000, "k": 1_000,
	"d": 1, "dong": 1, "vnd": 1,
}

// normalizeAmount turns "1,5 trieu" or "500.000d" into a plain VND integer.
func normalizeAmount(g []string) string {
	num, unit := g[1], g[2]
	mult := amountUnits[unit]

	var value float64
	if mult > 1 && isDecimal(num) {
		f, err := strconv.ParseFloat(strings.Replace(num, ",", ".", 1), 64)
		if err != nil {
			return ""
		}
		value = f
	} else {
		digits := strings.NewReplacer(".", "", ",", "").Replace(num)
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return ""
		}
		value = float64(n)
	}
	return strconv.FormatInt(int64(value*float64(mult)+0.5), 10)
}

// isDecimal reports whether num has a single separator followed by one or two
// digits, as in "1,5" or "2.25".
func isDecimal(num string) bool {
	i := strings.IndexAny(num, ".,")
	if i < 0 || strings.LastIndexAny(num, ".,") != i {
		return false
	}
	frac := len(num) - i - 1
	return frac >= 1 && frac <= 2
}

var numberWords = map[string]string{
	"mot": "1", "hai": "2", "ba": "3", "bon": "4", "tu": "4", "nam": "5",
	"sau": "6", "bay": "7", "tam": "8", "chin": "9", "muoi": "10",
}

func wordNumber(w string) string {
	return numberWords[w]
}
