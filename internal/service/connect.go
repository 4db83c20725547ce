package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	// GroupServiceName is the fully-qualified name of the GroupService.
	GroupServiceName = "esusu.v1.GroupService"
	// ContributionServiceName is the fully-qualified name of the ContributionService.
	ContributionServiceName = "esusu.v1.ContributionService"
)

// Procedure paths.
const (
	GroupServiceCreateGroupProcedure         = "/esusu.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure            = "/esusu.v1.GroupService/GetGroup"
	GroupServiceJoinGroupProcedure           = "/esusu.v1.GroupService/JoinGroup"
	GroupServiceLeaveGroupProcedure          = "/esusu.v1.GroupService/LeaveGroup"
	GroupServicePauseGroupProcedure          = "/esusu.v1.GroupService/PauseGroup"
	GroupServiceResumeGroupProcedure         = "/esusu.v1.GroupService/ResumeGroup"
	GroupServiceListAvailableGroupsProcedure = "/esusu.v1.GroupService/ListAvailableGroups"
	GroupServiceListMyGroupsProcedure        = "/esusu.v1.GroupService/ListMyGroups"
	GroupServiceGetGroupStatsProcedure       = "/esusu.v1.GroupService/GetGroupStats"
	GroupServiceListContributionsProcedure   = "/esusu.v1.GroupService/ListContributions"
	GroupServiceCheckOverdueRoundsProcedure  = "/esusu.v1.GroupService/CheckOverdueRounds"
	GroupServiceDisburseRoundProcedure       = "/esusu.v1.GroupService/DisburseRound"

	ContributionServiceSubmitContributionProcedure = "/esusu.v1.ContributionService/SubmitContribution"
	ContributionServiceGetPaymentStatusProcedure   = "/esusu.v1.ContributionService/GetPaymentStatus"
)

// NewGroupServiceHandler builds an HTTP handler for svc and returns the path to
// mount it on.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceJoinGroupProcedure, connect.NewUnaryHandler(GroupServiceJoinGroupProcedure, svc.JoinGroup, opts...))
	mux.Handle(GroupServiceLeaveGroupProcedure, connect.NewUnaryHandler(GroupServiceLeaveGroupProcedure, svc.LeaveGroup, opts...))
	mux.Handle(GroupServicePauseGroupProcedure, connect.NewUnaryHandler(GroupServicePauseGroupProcedure, svc.PauseGroup, opts...))
	mux.Handle(GroupServiceResumeGroupProcedure, connect.NewUnaryHandler(GroupServiceResumeGroupProcedure, svc.ResumeGroup, opts...))
	mux.Handle(GroupServiceListAvailableGroupsProcedure, connect.NewUnaryHandler(GroupServiceListAvailableGroupsProcedure, svc.ListAvailableGroups, opts...))
	mux.Handle(GroupServiceListMyGroupsProcedure, connect.NewUnaryHandler(GroupServiceListMyGroupsProcedure, svc.ListMyGroups, opts...))
	mux.Handle(GroupServiceGetGroupStatsProcedure, connect.NewUnaryHandler(GroupServiceGetGroupStatsProcedure, svc.GetGroupStats, opts...))
	mux.Handle(GroupServiceListContributionsProcedure, connect.NewUnaryHandler(GroupServiceListContributionsProcedure, svc.ListContributions, opts...))
	mux.Handle(GroupServiceCheckOverdueRoundsProcedure, connect.NewUnaryHandler(GroupServiceCheckOverdueRoundsProcedure, svc.CheckOverdueRounds, opts...))
	mux.Handle(GroupServiceDisburseRoundProcedure, connect.NewUnaryHandler(GroupServiceDisburseRoundProcedure, svc.DisburseRound, opts...))
	return "/" + GroupServiceName + "/", mux
}

// NewContributionServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewContributionServiceHandler(svc *ContributionService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ContributionServiceSubmitContributionProcedure, connect.NewUnaryHandler(ContributionServiceSubmitContributionProcedure, svc.SubmitContribution, opts...))
	mux.Handle(ContributionServiceGetPaymentStatusProcedure, connect.NewUnaryHandler(ContributionServiceGetPaymentStatusProcedure, svc.GetPaymentStatus, opts...))
	return "/" + ContributionServiceName + "/", mux
}

// GroupServiceClient calls a remote GroupService.
type GroupServiceClient struct {
	createGroup         *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup            *connect.Client[GroupRequest, GetGroupResponse]
	joinGroup           *connect.Client[GroupRequest, GroupResponse]
	leaveGroup          *connect.Client[GroupRequest, LeaveGroupResponse]
	pauseGroup          *connect.Client[GroupRequest, GroupResponse]
	resumeGroup         *connect.Client[GroupRequest, GroupResponse]
	listAvailableGroups *connect.Client[ListAvailableGroupsRequest, ListGroupsResponse]
	listMyGroups        *connect.Client[ListMyGroupsRequest, ListGroupsResponse]
	getGroupStats       *connect.Client[GroupRequest, GetGroupStatsResponse]
	listContributions   *connect.Client[ListContributionsRequest, ListContributionsResponse]
	checkOverdueRounds  *connect.Client[GroupRequest, CheckOverdueRoundsResponse]
	disburseRound       *connect.Client[DisburseRoundRequest, DisburseRoundResponse]
}

// NewGroupServiceClient creates a client for the GroupService at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup:         connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:            connect.NewClient[GroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		joinGroup:           connect.NewClient[GroupRequest, GroupResponse](httpClient, baseURL+GroupServiceJoinGroupProcedure, opts...),
		leaveGroup:          connect.NewClient[GroupRequest, LeaveGroupResponse](httpClient, baseURL+GroupServiceLeaveGroupProcedure, opts...),
		pauseGroup:          connect.NewClient[GroupRequest, GroupResponse](httpClient, baseURL+GroupServicePauseGroupProcedure, opts...),
		resumeGroup:         connect.NewClient[GroupRequest, GroupResponse](httpClient, baseURL+GroupServiceResumeGroupProcedure, opts...),
		listAvailableGroups: connect.NewClient[ListAvailableGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListAvailableGroupsProcedure, opts...),
		listMyGroups:        connect.NewClient[ListMyGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListMyGroupsProcedure, opts...),
		getGroupStats:       connect.NewClient[GroupRequest, GetGroupStatsResponse](httpClient, baseURL+GroupServiceGetGroupStatsProcedure, opts...),
		listContributions:   connect.NewClient[ListContributionsRequest, ListContributionsResponse](httpClient, baseURL+GroupServiceListContributionsProcedure, opts...),
		checkOverdueRounds:  connect.NewClient[GroupRequest, CheckOverdueRoundsResponse](httpClient, baseURL+GroupServiceCheckOverdueRoundsProcedure, opts...),
		disburseRound:       connect.NewClient[DisburseRoundRequest, DisburseRoundResponse](httpClient, baseURL+GroupServiceDisburseRoundProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) JoinGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) PauseGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.pauseGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ResumeGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.resumeGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListAvailableGroups(ctx context.Context, req *connect.Request[ListAvailableGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listAvailableGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListMyGroups(ctx context.Context, req *connect.Request[ListMyGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listMyGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupStats(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GetGroupStatsResponse], error) {
	return c.getGroupStats.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListContributions(ctx context.Context, req *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error) {
	return c.listContributions.CallUnary(ctx, req)
}

func (c *GroupServiceClient) CheckOverdueRounds(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CheckOverdueRoundsResponse], error) {
	return c.checkOverdueRounds.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DisburseRound(ctx context.Context, req *connect.Request[DisburseRoundRequest]) (*connect.Response[DisburseRoundResponse], error) {
	return c.disburseRound.CallUnary(ctx, req)
}

// ContributionServiceClient calls a remote ContributionService.
type ContributionServiceClient struct {
	submitContribution *connect.Client[SubmitContributionRequest, SubmitContributionResponse]
	getPaymentStatus   *connect.Client[GetPaymentStatusRequest, GetPaymentStatusResponse]
}

// NewContributionServiceClient creates a client for the ContributionService at baseURL.
func NewContributionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ContributionServiceClient {
	opts = clientOptions(opts)
	return &ContributionServiceClient{
		submitContribution: connect.NewClient[SubmitContributionRequest, SubmitContributionResponse](httpClient, baseURL+ContributionServiceSubmitContributionProcedure, opts...),
		getPaymentStatus:   connect.NewClient[GetPaymentStatusRequest, GetPaymentStatusResponse](httpClient, baseURL+ContributionServiceGetPaymentStatusProcedure, opts...),
	}
}

func (c *ContributionServiceClient) SubmitContribution(ctx context.Context, req *connect.Request[SubmitContributionRequest]) (*connect.Response[SubmitContributionResponse], error) {
	return c.submitContribution.CallUnary(ctx, req)
}

func (c *ContributionServiceClient) GetPaymentStatus(ctx context.Context, req *connect.Request[GetPaymentStatusRequest]) (*connect.Response[GetPaymentStatusResponse], error) {
	return c.getPaymentStatus.CallUnary(ctx, req)
}
