package service

type Course struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expires_in"`
	Courses   []Course `json:"courses"`
}

type ListCoursesRequest struct{}

type ListCoursesResponse struct {
	Courses []Course `json:"courses"`
}

type ExtractRequest struct {
	CourseId string `json:"course_id"`
}

type ExtractResponse struct {
	CourseId          string `json:"course_id"`
	CourseName        string `json:"course_name"`
	CourseCode        string `json:"course_code"`
	ParticipantCount  int    `json:"participant_count"`
	CsvFilename       string `json:"csv_filename"`
	CsvBase64         string `json:"csv_base64"`
	EmailListFilename string `json:"email_list_filename"`
	EmailListBase64   string `json:"email_list_base64"`
}

type ExtractAllRequest struct{}

type ExtractAllResponse struct {
	Filename        string   `json:"filename"`
	Base64          string   `json:"base64"`
	CourseCount     int      `json:"course_count"`
	ExtractedCount  int      `json:"extracted_count"`
	FailedCourseIds []string `json:"failed_course_ids"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}
