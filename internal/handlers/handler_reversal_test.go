package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/handlers"
)

type ReversalHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	reversalSvc *MockReversalService
	tenantID    string
}

func (suite *ReversalHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.reversalSvc = new(MockReversalService)
	suite.tenantID = "tenant-1"

	handlers.RegisterRoutes(suite.router, &services.Container{Reversal: suite.reversalSvc})
}

func (suite *ReversalHandlerTestSuite) post(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	suite.Require().NoError(err)
	url := fmt.Sprintf("/api/v1/tenants/%s/entries/%s", suite.tenantID, path)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ReversalHandlerTestSuite) TestReverseEntry_Success() {
	reqBody := dto.ReversalRequest{EventID: "EVT-rev-1", Reason: "duplicate invoice", CreatedBy: "ops"}
	suite.reversalSvc.On("Reverse", mock.Anything, suite.tenantID, "je-1", reqBody).
		Return(&dto.ReversalResponse{ReversalEntryID: "je-2", OriginalEntryID: "je-1", Status: "REVERSAL"}, nil).Once()

	w := suite.post("je-1/reverse", reqBody)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.ReversalResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("je-2", resp.ReversalEntryID)
	suite.reversalSvc.AssertExpectations(suite.T())
}

func (suite *ReversalHandlerTestSuite) TestReverseEntry_MissingReason() {
	w := suite.post("je-1/reverse", dto.ReversalRequest{EventID: "EVT-rev-1", CreatedBy: "ops"})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.reversalSvc.AssertNotCalled(suite.T(), "Reverse", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ReversalHandlerTestSuite) TestReverseEntry_AlreadyReversed() {
	reqBody := dto.ReversalRequest{EventID: "EVT-rev-1", Reason: "duplicate invoice", CreatedBy: "ops"}
	suite.reversalSvc.On("Reverse", mock.Anything, suite.tenantID, "je-1", reqBody).
		Return(nil, apperrors.NewAppError(409, "journal entry je-1 is already reversed", apperrors.ErrConflict)).Once()

	w := suite.post("je-1/reverse", reqBody)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *ReversalHandlerTestSuite) TestCorrectEntry_Success() {
	replacementID := "je-3"
	reqBody := dto.CorrectionRequest{
		EventID:             "EVT-corr-1",
		ReversalEventID:     "EVT-corr-1-rev",
		PostingDate:         time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		TransactionCurrency: "USD",
		CreatedBy:           "ops",
		Lines: []dto.EntryLineRequest{
			{AccountCode: "1000", Amount: 9000, IsCredit: false},
			{AccountCode: "4000", Amount: 9000, IsCredit: true},
		},
	}
	suite.reversalSvc.On("Correct", mock.Anything, suite.tenantID, "je-1", mock.AnythingOfType("dto.CorrectionRequest")).
		Return(&dto.ReversalResponse{ReversalEntryID: "je-2", OriginalEntryID: "je-1", ReplacementEntryID: &replacementID, Status: "CORRECTION"}, nil).Once()

	w := suite.post("je-1/correct", reqBody)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.ReversalResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotNil(resp.ReplacementEntryID)
	suite.Equal("je-3", *resp.ReplacementEntryID)
}

func (suite *ReversalHandlerTestSuite) TestCorrectEntry_UnbalancedReplacement() {
	reqBody := dto.CorrectionRequest{
		EventID:             "EVT-corr-1",
		ReversalEventID:     "EVT-corr-1-rev",
		PostingDate:         time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		TransactionCurrency: "USD",
		CreatedBy:           "ops",
		Lines: []dto.EntryLineRequest{
			{AccountCode: "1000", Amount: 9000, IsCredit: false},
			{AccountCode: "4000", Amount: 8000, IsCredit: true},
		},
	}
	suite.reversalSvc.On("Correct", mock.Anything, suite.tenantID, "je-1", mock.AnythingOfType("dto.CorrectionRequest")).
		Return(nil, apperrors.NewAppError(422, "replacement entry is not balanced", apperrors.ErrValidation)).Once()

	w := suite.post("je-1/correct", reqBody)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func TestReversalHandler(t *testing.T) {
	suite.Run(t, new(ReversalHandlerTestSuite))
}
