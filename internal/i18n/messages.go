package i18n

// messages holds every localized string, keyed by message key then
// locale tag. Stage keys mirror the SSE stage names; error keys mirror
// the error code set.
var messages = map[string]map[string]string{
	// SSE progress stages.
	"request_received": {
		"zh-TW": "已收到查詢請求",
		"ja":    "クエリリクエストを受け付けました",
		"en":    "Request received",
	},
	"schema_confirmed": {
		"zh-TW": "已確認查詢意圖與資料結構",
		"ja":    "クエリ意図とスキーマを確認しました",
		"en":    "Intent and schema confirmed",
	},
	"sql_generated": {
		"zh-TW": "SQL 已產生",
		"ja":    "SQLを生成しました",
		"en":    "SQL generated",
	},
	"query_executing": {
		"zh-TW": "查詢執行中",
		"ja":    "クエリを実行しています",
		"en":    "Executing query",
	},
	"query_completed": {
		"zh-TW": "查詢執行完成",
		"ja":    "クエリの実行が完了しました",
		"en":    "Query completed",
	},
	"result_validating": {
		"zh-TW": "正在驗證查詢結果",
		"ja":    "結果を検証しています",
		"en":    "Validating result",
	},
	"result_ready": {
		"zh-TW": "查詢結果已就緒",
		"ja":    "結果の準備ができました",
		"en":    "Result ready",
	},
	"final": {
		"zh-TW": "查詢完成",
		"ja":    "処理が完了しました",
		"en":    "Done",
	},
	"error": {
		"zh-TW": "查詢失敗",
		"ja":    "クエリに失敗しました",
		"en":    "Query failed",
	},

	// Error codes: the user-facing remediation line per code.
	"INTENT_UNCLEAR": {
		"zh-TW": "無法確定您想查詢的內容，請換個方式描述",
		"ja":    "ご質問の意図を特定できませんでした。別の表現でお試しください",
		"en":    "Could not determine what to query; please rephrase the question",
	},
	"SCHEMA_NOT_FOUND": {
		"zh-TW": "找不到對應的資料表",
		"ja":    "対象のテーブルが見つかりません",
		"en":    "The referenced table is not in the warehouse",
	},
	"MISSING_REQUIRED_FILTER": {
		"zh-TW": "查詢缺少必要的篩選條件",
		"ja":    "必須の絞り込み条件が不足しています",
		"en":    "A required filter is missing from the question",
	},
	"ITEM_NOT_FOUND": {
		"zh-TW": "找不到此料號",
		"ja":    "該当する品目が見つかりません",
		"en":    "Item not found in master data",
	},
	"WAREHOUSE_NOT_FOUND": {
		"zh-TW": "找不到此倉庫",
		"ja":    "該当する倉庫が見つかりません",
		"en":    "Warehouse not found in master data",
	},
	"WORKSTATION_NOT_FOUND": {
		"zh-TW": "找不到此工作站",
		"ja":    "該当する作業場が見つかりません",
		"en":    "Workstation not found in master data",
	},
	"AMBIGUOUS_REFERENCE": {
		"zh-TW": "欄位名稱有歧義，無法判斷所屬資料表",
		"ja":    "列名の参照が曖昧です",
		"en":    "A column reference is ambiguous",
	},
	"COLUMN_NOT_FOUND": {
		"zh-TW": "找不到查詢的欄位",
		"ja":    "対象の列が見つかりません",
		"en":    "The referenced column does not exist",
	},
	"BINDER_ERROR": {
		"zh-TW": "查詢欄位對應失敗",
		"ja":    "スキーマの割り当てに失敗しました",
		"en":    "Failed to bind the query to the schema",
	},
	"OUT_OF_MEMORY": {
		"zh-TW": "查詢超出記憶體限制，請縮小查詢範圍",
		"ja":    "メモリ上限を超えました。条件を絞ってください",
		"en":    "Query exceeded the memory limit; narrow the scope",
	},
	"QUERY_TIMEOUT": {
		"zh-TW": "查詢逾時，請縮小查詢範圍後重試",
		"ja":    "クエリがタイムアウトしました。範囲を狭めて再試行してください",
		"en":    "Query timed out; narrow the range and retry",
	},
	"CONNECTION_ERROR": {
		"zh-TW": "資料庫連線失敗，請稍後再試",
		"ja":    "データベースに接続できません。しばらくしてから再試行してください",
		"en":    "Could not reach the database; retry later",
	},
	"JOIN_UNGUARDED": {
		"zh-TW": "多表查詢缺少篩選條件，請加上查詢條件",
		"ja":    "結合クエリに絞り込み条件がありません。条件を追加してください",
		"en":    "Multi-table join has no filter; add a condition",
	},
	"QUERY_ERROR": {
		"zh-TW": "查詢執行失敗",
		"ja":    "クエリの実行に失敗しました",
		"en":    "Query execution failed",
	},
	"INTERNAL_ERROR": {
		"zh-TW": "系統發生錯誤，請稍後再試",
		"ja":    "内部エラーが発生しました。後でもう一度お試しください",
		"en":    "Internal error; retry later",
	},
}
