package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/esusu/internal/circle"
	"github.com/mmynk/esusu/internal/middleware"
	"github.com/mmynk/esusu/internal/models"
)

// GroupService implements the GroupService RPCs over the circle engine.
// Every procedure acts on behalf of the authenticated member.
type GroupService struct {
	engine *circle.Engine
	logger *slog.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(engine *circle.Engine, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{engine: engine, logger: logger}
}

// CreateGroup creates a forming group with the caller as admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"token", req.Msg.ContributionToken,
		"amount", req.Msg.ContributionAmount.String(),
	)

	var start time.Time
	if req.Msg.StartDate != nil {
		start = *req.Msg.StartDate
	}
	group, err := s.engine.CreateGroup(ctx, circle.CreateGroupParams{
		Name:                 req.Msg.Name,
		Description:          req.Msg.Description,
		CreatorID:            caller,
		ContributionAmount:   req.Msg.ContributionAmount,
		ContributionToken:    req.Msg.ContributionToken,
		ContributionInterval: models.Interval(req.Msg.ContributionInterval),
		StartDate:            start,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// GetGroup returns a group and, once it is active, the progress of its current round.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GetGroupResponse], error) {
	if _, err := memberID(ctx); err != nil {
		return nil, err
	}
	group, err := s.engine.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &GetGroupResponse{Group: toGroup(group)}
	if group.Status == models.StatusActive {
		status, err := s.engine.CurrentRoundStatus(ctx, group.ID)
		if err != nil {
			return nil, toConnectError(err)
		}
		round := toRoundStatus(status)
		resp.Round = &round
	}
	return connect.NewResponse(resp), nil
}

// JoinGroup adds the caller to a forming group.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.engine.JoinGroup(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// LeaveGroup removes the caller from a forming group.
func (s *GroupService) LeaveGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.LeaveGroup(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&LeaveGroupResponse{
		Group:    toGroup(out.Group),
		Deleted:  out.Deleted,
		NewAdmin: out.NewAdmin,
	}), nil
}

// PauseGroup suspends a group. Admin only.
func (s *GroupService) PauseGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.engine.PauseGroup(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// ResumeGroup restores a paused group. Admin only.
func (s *GroupService) ResumeGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.engine.ResumeGroup(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// ListAvailableGroups lists forming groups with open seats.
func (s *GroupService) ListAvailableGroups(ctx context.Context, req *connect.Request[ListAvailableGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	if _, err := memberID(ctx); err != nil {
		return nil, err
	}
	groups, err := s.engine.ListAvailableGroups(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: toGroups(groups)}), nil
}

// ListMyGroups lists the groups the caller belongs to.
func (s *GroupService) ListMyGroups(ctx context.Context, req *connect.Request[ListMyGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.engine.ListMemberGroups(ctx, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: toGroups(groups)}), nil
}

// GetGroupStats summarizes a group's contributions and payouts.
func (s *GroupService) GetGroupStats(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GetGroupStatsResponse], error) {
	if _, err := memberID(ctx); err != nil {
		return nil, err
	}
	stats, err := s.engine.GroupStats(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetGroupStatsResponse{Stats: &GroupStats{
		GroupID:            stats.GroupID,
		Status:             string(stats.Status),
		TotalContributions: stats.TotalContributions,
		TotalPaidOut:       stats.TotalPaidOut,
		CurrentRound:       stats.CurrentRound,
		TotalRounds:        stats.TotalRounds,
		ActiveMembers:      stats.ActiveMembers,
		NextPayoutDate:     stats.NextPayoutDate,
		NextRecipient:      stats.NextRecipient,
	}}), nil
}

// ListContributions returns the contribution history of a group, or of one
// round when Round is set. Restricted to members of the group.
func (s *GroupService) ListContributions(ctx context.Context, req *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error) {
	group, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.engine.ListContributions(ctx, group.ID, req.Msg.Round)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListContributionsResponse{Contributions: toContributions(contributions)}), nil
}

// CheckOverdueRounds reports on the current round and reminds delinquent
// members. Restricted to members of the group.
func (s *GroupService) CheckOverdueRounds(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CheckOverdueRoundsResponse], error) {
	if _, err := s.requireMember(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	report, err := s.engine.CheckOverdueRounds(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CheckOverdueRoundsResponse{Report: &OverdueReport{
		GroupID:    report.GroupID,
		Round:      report.Round,
		Deadline:   report.Deadline,
		Overdue:    report.Overdue,
		Delinquent: report.Delinquent,
	}}), nil
}

// DisburseRound pays out a funded round. Contributions trigger this
// automatically; the RPC lets the admin retry a payout that failed.
func (s *GroupService) DisburseRound(ctx context.Context, req *connect.Request[DisburseRoundRequest]) (*connect.Response[DisburseRoundResponse], error) {
	group, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(middleware.GetMemberID(ctx)) {
		return nil, toConnectError(circle.ErrNotAdmin)
	}
	out, err := s.engine.Disburse(ctx, group.ID, req.Msg.Round)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Round disbursed on request",
		"group_id", group.ID,
		"round", out.Round,
		"already_paid", out.AlreadyPaid,
	)
	return connect.NewResponse(&DisburseRoundResponse{Disbursement: toDisbursement(out)}), nil
}

func (s *GroupService) requireMember(ctx context.Context, groupID string) (*models.Group, error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.engine.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !group.IsActiveMember(caller) {
		return nil, toConnectError(circle.ErrNotAMember)
	}
	return group, nil
}
