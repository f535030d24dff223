package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateCaseDraft(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.CreateCase, http.MethodPost, "/v1/cases", `{}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "draft", body["status"])
	assert.NotEmpty(t, body["case_id"])
}

func TestCreateCaseInvalidBody(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.CreateCase, http.MethodPost, "/v1/cases", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCaseWithDocuments(t *testing.T) {
	h := newTestHandler(t)
	caseID := createTestCase(t, h)

	rec := doJSON(t, h.AttachDocument, http.MethodPost, "/v1/cases/"+caseID+"/documents",
		`{"filename": "paystub.pdf", "content_type": "application/pdf", "size": 2048}`,
		map[string]string{"case_id": caseID})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h.GetCase, http.MethodGet, "/v1/cases/"+caseID, "", map[string]string{"case_id": caseID})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	kase := body["case"].(map[string]interface{})
	assert.Equal(t, caseID, kase["case_id"])
	assert.Equal(t, "ready", kase["status"])

	docs := body["documents"].([]interface{})
	assert.Len(t, docs, 1)
	assert.Equal(t, "paystub.pdf", docs[0].(map[string]interface{})["filename"])
}

func TestGetCaseNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.GetCase, http.MethodGet, "/v1/cases/case_missing", "", map[string]string{"case_id": "case_missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCases(t *testing.T) {
	h := newTestHandler(t)
	createTestCase(t, h)
	createTestCase(t, h)

	rec := doJSON(t, h.ListCases, http.MethodGet, "/v1/cases", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["cases"].([]interface{}), 2)
}

func TestListCasesEmpty(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.ListCases, http.MethodGet, "/v1/cases", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["total"])
	// An empty list serializes as [], not null.
	assert.NotNil(t, body["cases"])
}

func TestUpdateApplicantHandler(t *testing.T) {
	h := newTestHandler(t)
	caseID := createTestCase(t, h)

	rec := doJSON(t, h.UpdateApplicant, http.MethodPatch, "/v1/cases/"+caseID+"/applicant",
		`{"credit_score": 720}`, map[string]string{"case_id": caseID})
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	applicant := body["applicant"].(map[string]interface{})
	assert.Equal(t, float64(720), applicant["credit_score"])
	assert.Equal(t, float64(12000), applicant["loan_amount"])
}

func TestUpdateApplicantNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.UpdateApplicant, http.MethodPatch, "/v1/cases/case_missing/applicant",
		`{"credit_score": 720}`, map[string]string{"case_id": "case_missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachDocumentRequiresFilename(t *testing.T) {
	h := newTestHandler(t)
	caseID := createTestCase(t, h)

	rec := doJSON(t, h.AttachDocument, http.MethodPost, "/v1/cases/"+caseID+"/documents",
		`{"content_type": "application/pdf"}`, map[string]string{"case_id": caseID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAuditEvents(t *testing.T) {
	h := newTestHandler(t)
	caseID := createTestCase(t, h)

	rec := doJSON(t, h.ListAuditEvents, http.MethodGet, "/v1/cases/"+caseID+"/audit", "", map[string]string{"case_id": caseID})
	assert.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody(t, rec)["events"].([]interface{})
	assert.Len(t, events, 1)
	assert.Equal(t, "created_case", events[0].(map[string]interface{})["event_type"])
}
