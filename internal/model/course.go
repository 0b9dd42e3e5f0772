// Package model はドメインモデルを定義する。
package model

import "time"

// PlanPointRef は学習プラン上のプランポイント（科目グループ）への参照を表す。
// ListURL はポータル内部の遷移先であり、呼び出し側からは不透明な値として扱う。
type PlanPointRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Depth   int    `json:"depth"`
	ListURL string `json:"-"`
}

// CourseItem は正規化済みのコース（開講科目）1件を表す。
// Capacity / FreeSeats は不明の場合nil（0ではない）。
// CourseID と PlanPointID は空文字にならず、両者の組が1アカウントの
// インデックス内で自然キーとなる。
type CourseItem struct {
	PlanPointID   string   `json:"plan_point_id"`
	CourseID      string   `json:"course_id"`
	Title         string   `json:"title"`
	Lecturers     []string `json:"lecturers"`
	Semester      string   `json:"semester,omitempty"`
	Status        string   `json:"status,omitempty"`
	Capacity      *int     `json:"capacity,omitempty"`
	FreeSeats     *int     `json:"free_seats,omitempty"`
	WaitlistLabel string   `json:"waitlist_label,omitempty"`
	WaitlistCount int      `json:"waitlist_count"`
	EnrollOpenAt  string   `json:"enroll_open_at,omitempty"`
}

// SearchMeta は検索レスポンスに付与するメタデータ。
// キャッシュ由来の結果か、ライブスキャン（provisional）由来かを
// 呼び出し側が判別できるようにする。
type SearchMeta struct {
	CacheExists    bool       `json:"cache_exists"`
	CacheUpdatedAt *time.Time `json:"cache_updated_at,omitempty"`
	Building       bool       `json:"building"`
	Fresh          bool       `json:"fresh"`
	Provisional    bool       `json:"provisional"`
	LastError      string     `json:"last_error,omitempty"`
}

// SearchResult は検索APIのレスポンス本体。
type SearchResult struct {
	Items []CourseItem `json:"items"`
	Meta  SearchMeta   `json:"meta"`
}

// IndexStatus はアカウントのインデックス状態を表す。
type IndexStatus struct {
	Exists    bool       `json:"exists"`
	Building  bool       `json:"building"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	ItemCount int        `json:"item_count"`
	Fresh     bool       `json:"fresh"`
	LastError string     `json:"last_error,omitempty"`
}
