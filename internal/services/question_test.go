package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/stretchr/testify/suite"
)

type QuestionSuite struct {
	serviceSuite
}

func TestQuestionSuite(t *testing.T) {
	suite.Run(t, new(QuestionSuite))
}

func (s *QuestionSuite) TestGenerateIsIdempotent() {
	ctx := context.Background()
	first, err := s.questions.Generate(ctx, s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(first, 5)

	second, err := s.questions.Generate(ctx, s.actor(s.admin), s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(second, len(first))
	for i := range first {
		s.Equal(first[i].ID, second[i].ID)
		s.Equal(first[i].Question, second[i].Question)
	}
	s.Equal(1, s.completer.callCount(), "existing questions skip the generator")

	p := s.reloadProject()
	s.True(p.QuestionsGenerated)
	s.True(p.CanProceedFromContext)
}

func (s *QuestionSuite) TestGenerateFromReply() {
	s.completer.replies = []string{`Here you go: [
		{"section": "Audience", "question": "Who will use it?", "input_type": "select", "options": ["Teams", "Individuals"], "required": true},
		{"section": "Scope", "question": "What is out of scope?"}
	]`}

	qs, err := s.questions.Generate(context.Background(), s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(qs, 2)
	s.Equal("select", qs[0].InputType)
	s.JSONEq(`["Teams","Individuals"]`, qs[0].Options)
	s.True(qs[0].Required)
	s.Equal("textarea", qs[1].InputType)
	s.Equal(2, qs[1].DisplayOrder)
}

func (s *QuestionSuite) TestGenerateRequiresManager() {
	_, err := s.questions.Generate(context.Background(), s.actor(s.member), s.project.ID)
	s.requireStatus(err, http.StatusForbidden)
}

func (s *QuestionSuite) TestSaveAnswerUpserts() {
	qs, err := s.questions.Generate(context.Background(), s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	q := qs[0]

	first, err := s.questions.SaveAnswer(s.actor(s.member), s.project.ID, &SaveAnswerRequest{QuestionID: q.ID, Answer: "first"})
	s.Require().NoError(err)
	second, err := s.questions.SaveAnswer(s.actor(s.owner), s.project.ID, &SaveAnswerRequest{QuestionID: q.ID, Answer: "second"})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("second", second.Answer)

	var count int64
	s.db.Model(&models.ProjectAnswer{}).Where("project_id = ? AND question_id = ?", s.project.ID, q.ID).Count(&count)
	s.Equal(int64(1), count)
}

func (s *QuestionSuite) TestSaveAnswerChecks() {
	_, err := s.questions.SaveAnswer(s.actor(s.owner), s.project.ID, &SaveAnswerRequest{QuestionID: 9999, Answer: "x"})
	s.requireStatus(err, http.StatusNotFound)

	qs, err := s.questions.Generate(context.Background(), s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	_, err = s.questions.SaveAnswer(s.actor(s.viewer), s.project.ID, &SaveAnswerRequest{QuestionID: qs[0].ID, Answer: "x"})
	s.requireStatus(err, http.StatusForbidden)
}

func (s *QuestionSuite) TestListForMissingProjectIsEmpty() {
	qs, err := s.questions.List(s.actor(s.owner), 9999)
	s.Require().NoError(err)
	s.Empty(qs)

	answers, err := s.questions.ListAnswers(Actor{}, s.project.ID)
	s.Require().NoError(err)
	s.Empty(answers)
}
